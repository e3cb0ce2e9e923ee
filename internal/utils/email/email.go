package email

import (
	"fmt"
	"net/smtp"

	"github.com/AlionaVr/Bank-cards-REST/internal/config"
	"github.com/AlionaVr/Bank-cards-REST/internal/models"
	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"
)

// Sender notifies card owners about lifecycle events via SMTP. Notifications
// are best-effort: a send failure is logged, never propagated.
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// CardBlockRequested notifies the owner that their block request was recorded.
func (s *Sender) CardBlockRequested(user *models.User, last4 string) {
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"We received your request to block the card ending in %s.\n"+
			"The card stays usable until an administrator confirms the block.\n",
		user.Login, last4,
	)
	s.send(user.Email, "Card Block Requested", body)
}

// CardBlocked notifies the owner that their card was blocked.
func (s *Sender) CardBlocked(user *models.User, last4 string) {
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your card ending in %s has been blocked.\n"+
			"Contact support if you did not expect this.\n",
		user.Login, last4,
	)
	s.send(user.Email, "Card Blocked", body)
}

// CardActivated notifies the owner that their card is active again.
func (s *Sender) CardActivated(user *models.User, last4 string) {
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your card ending in %s has been activated and is ready to use.\n",
		user.Login, last4,
	)
	s.send(user.Email, "Card Activated", body)
}

func (s *Sender) send(to, subject, body string) {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body + "\nBest regards,\nBank Cards Service")

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return
	}

	s.logger.Infof("Email sent to %s: %s", to, subject)
}
