package gateway

import "testing"

func TestUserMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		declineCode string
		want        string
	}{
		{
			name:        "known code",
			declineCode: "insufficient_funds",
			want:        "Your card has insufficient funds. Please try a different card.",
		},
		{
			name:        "card declined",
			declineCode: "card_declined",
			want:        "Your card was declined. Please try a different card.",
		},
		{
			name:        "unknown code falls back to generic",
			declineCode: "some_new_code",
			want:        "We couldn't process your payment. Please try again or use a different card.",
		},
		{
			name:        "empty code falls back to generic",
			declineCode: "",
			want:        "We couldn't process your payment. Please try again or use a different card.",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := UserMessage(tt.declineCode); got != tt.want {
				t.Fatalf("UserMessage(%q) = %q, want %q", tt.declineCode, got, tt.want)
			}
		})
	}
}

func TestInstrumentRelated(t *testing.T) {
	t.Parallel()

	if !InstrumentRelated("card_declined") {
		t.Fatalf("expected card_declined to be instrument-related")
	}
	if InstrumentRelated("amount_too_small") {
		t.Fatalf("expected amount_too_small to be a configuration problem")
	}
	if InstrumentRelated("unknown_code") {
		t.Fatalf("expected unknown codes not to be instrument-related")
	}
}

func TestIntentIDFromClientSecret(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		secret  string
		want    string
		wantErr bool
	}{
		{name: "valid", secret: "pi_3abc_secret_xyz", want: "pi_3abc"},
		{name: "trims whitespace", secret: "  pi_3abc_secret_xyz  ", want: "pi_3abc"},
		{name: "empty", secret: "", wantErr: true},
		{name: "no separator", secret: "pi_3abc", wantErr: true},
		{name: "separator without id", secret: "_secret_xyz", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := IntentIDFromClientSecret(tt.secret)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got id %q", tt.secret, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
