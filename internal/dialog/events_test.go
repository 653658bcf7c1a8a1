package dialog

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want Action
	}{
		{"start", Event{Kind: KindCommand, Payload: "/start"}, ShowMenu{}},
		{"start with bot suffix", Event{Kind: KindCommand, Payload: "/start@pedidos_bot"}, ShowMenu{}},
		{"help alias", Event{Kind: KindCommand, Payload: "/ayuda"}, ShowHelp{}},
		{"cart command", Event{Kind: KindCommand, Payload: "/carrito"}, ShowCart{Page: 1}},
		{"unknown command", Event{Kind: KindCommand, Payload: "/x"}, Unknown{Raw: "/x"}},
		{"text", Event{Kind: KindText, Payload: " leche "}, Text{Value: " leche "}},
		{"locality with separator in name", Event{Kind: KindButton, Payload: "loc|2|Villa|Norte"}, ShowLocality{Page: 2, Name: "Villa|Norte"}},
		{"client", Event{Kind: KindButton, Payload: "client|12"}, PickClient{ID: 12}},
		{"category page", Event{Kind: KindButton, Payload: "cat|3|2"}, ShowCategory{ID: 3, Page: 2}},
		{"category missing page", Event{Kind: KindButton, Payload: "cat|3"}, Unknown{Raw: "cat|3"}},
		{"quantity", Event{Kind: KindButton, Payload: "qty|7|5"}, PickQuantity{ProductID: 7, Quantity: 5}},
		{"quantity bad id", Event{Kind: KindButton, Payload: "qty|-1|5"}, Unknown{Raw: "qty|-1|5"}},
		{"custom quantity", Event{Kind: KindButton, Payload: "qty_other|7"}, AskQuantity{ProductID: 7}},
		{"search all", Event{Kind: KindButton, Payload: "search|0"}, SearchProducts{CategoryID: 0}},
		{"cart default page", Event{Kind: KindButton, Payload: "cart"}, ShowCart{Page: 1}},
		{"cart delete", Event{Kind: KindButton, Payload: "cart_del|4"}, RemoveItem{Index: 4}},
		{"note", Event{Kind: KindButton, Payload: "note_yes"}, AddNote{}},
		{"order detail", Event{Kind: KindButton, Payload: "order|PD000003"}, ShowOrder{ID: "PD000003"}},
		{"unknown kind", Event{Kind: "sticker", Payload: "x"}, Unknown{Raw: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, ParseEvent(tt.ev)); diff != "" {
				t.Fatalf("ParseEvent mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := []string{
		token(tokCategory, int64(5), 3),
		token(tokLocality, 2, "Sur"),
		token(tokQuantity, int64(19), 4),
		token(tokResults, 2),
	}
	want := []Action{
		ShowCategory{ID: 5, Page: 3},
		ShowLocality{Page: 2, Name: "Sur"},
		PickQuantity{ProductID: 19, Quantity: 4},
		ShowResults{Page: 2},
	}
	for i, tok := range tokens {
		if diff := cmp.Diff(want[i], ParseEvent(Event{Kind: KindButton, Payload: tok})); diff != "" {
			t.Fatalf("token %q mismatch (-want +got):\n%s", tok, diff)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	if got := formatMoney(35000); got != "$350" {
		t.Fatalf("formatMoney(35000) = %q, want $350", got)
	}
	if got := formatMoney(1250); !strings.HasPrefix(got, "$12") || !strings.HasSuffix(got, "50") {
		t.Fatalf("formatMoney(1250) = %q", got)
	}
}
