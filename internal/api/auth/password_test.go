package auth

import (
	"errors"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"valid", "Password1", false},
		{"valid-long", "CorrectHorse42battery", false},
		{"valid-exactly-8", "Abcdef12", false},
		{"too-short", "Abc1def", true},
		{"no-uppercase", "password1", true},
		{"no-lowercase", "PASSWORD1", true},
		{"no-digit", "PasswordX", true},
		{"empty", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePassword(tc.password)
			if tc.wantErr && err == nil {
				t.Error("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidatePassword_MultipleFailures(t *testing.T) {
	err := ValidatePassword("abc")
	if err == nil {
		t.Fatal("expected validation error")
	}

	var validErr *PasswordValidationError
	if !errors.As(err, &validErr) {
		t.Fatalf("error type = %T, want *PasswordValidationError", err)
	}
	// short + no uppercase + no digit
	if len(validErr.Messages) != 3 {
		t.Errorf("messages = %d, want 3: %v", len(validErr.Messages), validErr.Messages)
	}
}

func TestValidatePasswordOrError(t *testing.T) {
	if err := ValidatePasswordOrError("Password1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := ValidatePasswordOrError("short")
	if err == nil {
		t.Fatal("expected error")
	}
	var validErr *PasswordValidationError
	if errors.As(err, &validErr) {
		t.Error("API error should be a plain error, not the validation type")
	}
}
