package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/devshad-01/alx-project-nexus/internal/config"
	"github.com/devshad-01/alx-project-nexus/internal/models"

	"github.com/shopspring/decimal"
)

func TestSendCustomEmailConfigGuards(t *testing.T) {
	svc := NewEmailService(&config.EmailConfig{Enabled: false})
	if err := svc.SendCustomEmail("buyer@example.com", "", ""); !errors.Is(err, ErrEmailServiceDisabled) {
		t.Fatalf("expected disabled error, got: %v", err)
	}

	svc.SetConfig(&config.EmailConfig{Enabled: true})
	if err := svc.SendCustomEmail("buyer@example.com", "", ""); !errors.Is(err, ErrEmailServiceNotConfigured) {
		t.Fatalf("expected not configured error, got: %v", err)
	}

	svc.SetConfig(&config.EmailConfig{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    587,
		From:    "shop@example.com",
	})
	if err := svc.SendCustomEmail("not-an-address", "", ""); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected invalid email, got: %v", err)
	}
}

func TestBuildOrderStatusContent(t *testing.T) {
	subject, body := buildOrderStatusContent(OrderStatusEmailInput{
		OrderNo:   "ORD2025080001",
		Status:    "shipped",
		Amount:    models.NewMoneyFromDecimal(decimal.RequireFromString("149.48")),
		ItemCount: 2,
	})
	if subject == "" || body == "" {
		t.Fatalf("expected non-empty subject and body")
	}
	if !strings.Contains(body, "ORD2025080001") || !strings.Contains(body, "149.48") {
		t.Fatalf("expected order no and total in body: %s", body)
	}
}
