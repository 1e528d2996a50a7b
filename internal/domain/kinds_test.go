package domain

import (
	"errors"
	"testing"
)

func TestEarnKindTable(t *testing.T) {
	want := map[EarnKind]int64{
		EarnSignup:          25,
		EarnProfileComplete: 50,
		EarnResumeCreated:   25,
		EarnSocialFollow:    10,
		EarnReferral:        200,
		EarnDailyLogin:      10,
		EarnLevelUp:         100,
	}
	for k, pts := range want {
		if k.Points() != pts {
			t.Errorf("%s: %d points, want %d", k, k.Points(), pts)
		}
		if !k.TransactionType().IsEarning() {
			t.Errorf("%s maps to non-earning type %s", k, k.TransactionType())
		}
	}
}

func TestParseKindsRejectUnknown(t *testing.T) {
	if _, err := ParseEarnKind("lottery"); !errors.Is(err, ErrUnknownActivity) {
		t.Fatalf("ParseEarnKind: %v", err)
	}
	if _, err := ParseSpendKind("coffee"); !errors.Is(err, ErrUnknownActivity) {
		t.Fatalf("ParseSpendKind: %v", err)
	}
	k, err := ParseSpendKind("cv-download")
	if err != nil || k.TransactionType() != TxSpendDownload {
		t.Fatalf("cv-download: %v %s", err, k.TransactionType())
	}
}

func TestInsufficientPointsError(t *testing.T) {
	var err error = &InsufficientPointsError{Balance: 50, Required: 100}
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatal("must match ErrInsufficientPoints")
	}
	var ip *InsufficientPointsError
	if !errors.As(err, &ip) || ip.Shortfall() != 50 {
		t.Fatalf("shortfall = %d", ip.Shortfall())
	}
}
