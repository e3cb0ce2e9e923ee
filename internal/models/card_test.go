package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCard_EffectiveStatus(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		status CardStatus
		expiry time.Time
		want   CardStatus
	}{
		{"active before expiry", CardStatusActive, now.Add(time.Hour), CardStatusActive},
		{"blocked before expiry", CardStatusBlocked, now.Add(time.Hour), CardStatusBlocked},
		{"stored active past expiry derives expired", CardStatusActive, now.Add(-time.Hour), CardStatusExpired},
		{"stored blocked past expiry derives expired", CardStatusBlocked, now.Add(-time.Hour), CardStatusExpired},
		{"expiry instant counts as expired", CardStatusActive, now, CardStatusExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := &Card{Status: tt.status, ExpiryDate: tt.expiry}
			assert.Equal(t, tt.want, card.EffectiveStatus(now))
		})
	}
}

func TestCard_IsActive(t *testing.T) {
	now := time.Now()

	active := &Card{Status: CardStatusActive, ExpiryDate: now.Add(time.Hour)}
	assert.True(t, active.IsActive(now))

	expired := &Card{Status: CardStatusActive, ExpiryDate: now.Add(-time.Hour)}
	assert.False(t, expired.IsActive(now))

	blocked := &Card{Status: CardStatusBlocked, ExpiryDate: now.Add(time.Hour)}
	assert.False(t, blocked.IsActive(now))
}
