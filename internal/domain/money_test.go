package domain

import "testing"

func TestMoneyString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   Money
		want string
	}{
		{in: 0, want: "0"},
		{in: 136000, want: "1360"},
		{in: 1250, want: "12.5"},
		{in: 1205, want: "12.05"},
		{in: -500, want: "-5"},
	}
	for _, tc := range cases {
		if got := tc.in.String(); got != tc.want {
			t.Fatalf("Money(%d).String() = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMoneyFromFloatRounds(t *testing.T) {
	t.Parallel()

	if got := MoneyFromFloat(330); got != 33000 {
		t.Fatalf("expected 33000, got %d", got)
	}
	if got := MoneyFromFloat(0.1 + 0.2); got != 30 {
		t.Fatalf("expected 30, got %d", got)
	}
	if got := MoneyFromFloat(12.345); got != 1235 && got != 1234 {
		t.Fatalf("unexpected rounding %d", got)
	}
	if got := MoneyFromFloat(330).Mul(2) + MoneyFromFloat(700); got != 136000 {
		t.Fatalf("expected 136000, got %d", got)
	}
}

func TestSessionCloneIsolatesCart(t *testing.T) {
	t.Parallel()

	s := Session{UserID: 1, Client: &Client{ID: 3}, Cart: Cart{Items: []CartItem{{ProductID: 1, Quantity: 1}}}}
	clone := s.Clone()
	clone.Cart.Items[0].Quantity = 5
	clone.Client.ID = 9
	if s.Cart.Items[0].Quantity != 1 || s.Client.ID != 3 {
		t.Fatalf("clone mutated original: %+v", s)
	}
}

func TestSessionResetOrder(t *testing.T) {
	t.Parallel()

	s := Session{UserID: 1, Step: StepCartReview, Client: &Client{ID: 3}, OrderID: "PD000001", Cart: Cart{Items: []CartItem{{ProductID: 1}}}}
	s.ResetOrder()
	if s.Step != StepIdle || s.Client != nil || s.OrderID != "" || !s.Cart.Empty() {
		t.Fatalf("unexpected session after reset: %+v", s)
	}
	if s.UserID != 1 {
		t.Fatalf("user id must survive reset")
	}
}
