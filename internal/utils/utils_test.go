package utils

import (
	"errors"
	"os"
	"testing"
	"time"
)

func TestGetEnvAsInt(t *testing.T) {
	os.Setenv("TEST_INT", "42")
	defer os.Unsetenv("TEST_INT")
	if got := GetEnvAsInt("TEST_INT", 7); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := GetEnvAsInt("TEST_INT_MISSING", 7); got != 7 {
		t.Errorf("expected default 7, got %d", got)
	}
	os.Setenv("TEST_INT", "not-a-number")
	if got := GetEnvAsInt("TEST_INT", 7); got != 7 {
		t.Errorf("expected default on parse failure, got %d", got)
	}
}

func TestGetEnvAsFloat(t *testing.T) {
	os.Setenv("TEST_FLOAT", "0.05")
	defer os.Unsetenv("TEST_FLOAT")
	if got := GetEnvAsFloat("TEST_FLOAT", 1.0); got != 0.05 {
		t.Errorf("expected 0.05, got %g", got)
	}
	if got := GetEnvAsFloat("TEST_FLOAT_MISSING", 1.0); got != 1.0 {
		t.Errorf("expected default 1.0, got %g", got)
	}
}

func TestGetEnvAsBool(t *testing.T) {
	cases := map[string]bool{"1": true, "true": true, "yes": true, "0": false, "false": false, "no": false}
	for val, want := range cases {
		os.Setenv("TEST_BOOL", val)
		if got := GetEnvAsBool("TEST_BOOL", !want); got != want {
			t.Errorf("GetEnvAsBool(%q) = %v, want %v", val, got, want)
		}
	}
	os.Unsetenv("TEST_BOOL")
	if !GetEnvAsBool("TEST_BOOL", true) {
		t.Error("expected default true for unset var")
	}
}

func TestRetry(t *testing.T) {
	calls := 0
	err := Retry(3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}

	calls = 0
	err = Retry(2, time.Millisecond, func() error {
		calls++
		return errors.New("permanent")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}
