package dialog

import (
	"strconv"
	"strings"
)

// Kind is the channel an inbound event arrived on.
type Kind string

const (
	KindCommand Kind = "command"
	KindButton  Kind = "button"
	KindText    Kind = "text"
)

// Event is one inbound interaction of a chat user.
type Event struct {
	UserID  int64  `json:"userId"`
	Kind    Kind   `json:"kind"`
	Payload string `json:"payload"`
}

// Button is one pressable option; Token comes back as the payload of a button event.
type Button struct {
	Text  string `json:"text"`
	Token string `json:"token"`
}

// Directive is what the transport should show the user. An empty Text means
// nothing needs to be sent.
type Directive struct {
	Text    string     `json:"text"`
	Buttons [][]Button `json:"buttons,omitempty"`
}

// Action is an event parsed into one of the variants below.
type Action interface {
	action()
}

type (
	ShowMenu       struct{}
	ShowHelp       struct{}
	NewOrder       struct{}
	SearchClients  struct{}
	ShowLocality   struct{ Name string; Page int }
	PickClient     struct{ ID int64 }
	ShowCategories struct{}
	ShowCategory   struct{ ID int64; Page int }
	ShowResults    struct{ Page int }
	SearchProducts struct{ CategoryID int64 }
	PickProduct    struct{ ID int64 }
	PickQuantity   struct{ ProductID int64; Quantity int }
	AskQuantity    struct{ ProductID int64 }
	ShowCart       struct{ Page int }
	RemoveItem     struct{ Index int }
	IncrementItem  struct{ Index int }
	DecrementItem  struct{ Index int }
	ClearCart      struct{}
	Checkout       struct{}
	AddNote        struct{}
	SkipNote       struct{}
	ShowOrders     struct{ Page int }
	ShowOrder      struct{ ID string }
	Noop           struct{}
	Text           struct{ Value string }
	Unknown        struct{ Raw string }
)

func (ShowMenu) action()       {}
func (ShowHelp) action()       {}
func (NewOrder) action()       {}
func (SearchClients) action()  {}
func (ShowLocality) action()   {}
func (PickClient) action()     {}
func (ShowCategories) action() {}
func (ShowCategory) action()   {}
func (ShowResults) action()    {}
func (SearchProducts) action() {}
func (PickProduct) action()    {}
func (PickQuantity) action()   {}
func (AskQuantity) action()    {}
func (ShowCart) action()       {}
func (RemoveItem) action()     {}
func (IncrementItem) action()  {}
func (DecrementItem) action()  {}
func (ClearCart) action()      {}
func (Checkout) action()       {}
func (AddNote) action()        {}
func (SkipNote) action()       {}
func (ShowOrders) action()     {}
func (ShowOrder) action()      {}
func (Noop) action()           {}
func (Text) action()           {}
func (Unknown) action()        {}

// Button tokens. Arguments are joined with '|'.
const (
	tokMenu          = "menu"
	tokHelp          = "help"
	tokNewOrder      = "new_order"
	tokClientSearch  = "client_search"
	tokLocality      = "loc"
	tokClient        = "client"
	tokCategories    = "categories"
	tokCategory      = "cat"
	tokResults       = "results"
	tokSearch        = "search"
	tokProduct       = "prod"
	tokQuantity      = "qty"
	tokQuantityOther = "qty_other"
	tokCart          = "cart"
	tokCartDelete    = "cart_del"
	tokCartInc       = "cart_inc"
	tokCartDec       = "cart_dec"
	tokCartClear     = "cart_clear"
	tokCheckout      = "checkout"
	tokNoteYes       = "note_yes"
	tokNoteNo        = "note_no"
	tokOrders        = "orders"
	tokOrder         = "order"
	tokNoop          = "noop"
)

// ParseEvent turns a raw event into an Action. Malformed tokens parse to Unknown.
func ParseEvent(ev Event) Action {
	switch ev.Kind {
	case KindCommand:
		return parseCommand(ev.Payload)
	case KindText:
		return Text{Value: ev.Payload}
	case KindButton:
		return parseToken(ev.Payload)
	}
	return Unknown{Raw: ev.Payload}
}

func parseCommand(payload string) Action {
	fields := strings.Fields(payload)
	if len(fields) == 0 {
		return Unknown{Raw: payload}
	}
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	switch name {
	case "/start", "/menu":
		return ShowMenu{}
	case "/ayuda", "/help":
		return ShowHelp{}
	case "/pedido":
		return NewOrder{}
	case "/carrito":
		return ShowCart{Page: 1}
	case "/pedidos":
		return ShowOrders{Page: 1}
	}
	return Unknown{Raw: payload}
}

func parseToken(token string) Action {
	parts := strings.Split(strings.TrimSpace(token), "|")
	args := parts[1:]
	unknown := Unknown{Raw: token}

	switch parts[0] {
	case tokMenu:
		return ShowMenu{}
	case tokHelp:
		return ShowHelp{}
	case tokNewOrder:
		return NewOrder{}
	case tokClientSearch:
		return SearchClients{}
	case tokLocality:
		if len(args) < 2 {
			return unknown
		}
		page, ok := atoi(args[0])
		if !ok {
			return unknown
		}
		return ShowLocality{Page: page, Name: strings.Join(args[1:], "|")}
	case tokClient:
		if id, ok := argID(args, 0); ok {
			return PickClient{ID: id}
		}
	case tokCategories:
		return ShowCategories{}
	case tokCategory:
		id, okID := argID(args, 0)
		page, okPage := argInt(args, 1)
		if okID && okPage {
			return ShowCategory{ID: id, Page: page}
		}
	case tokResults:
		if page, ok := argInt(args, 0); ok {
			return ShowResults{Page: page}
		}
	case tokSearch:
		if id, ok := argID(args, 0); ok {
			return SearchProducts{CategoryID: id}
		}
	case tokProduct:
		if id, ok := argID(args, 0); ok {
			return PickProduct{ID: id}
		}
	case tokQuantity:
		id, okID := argID(args, 0)
		qty, okQty := argInt(args, 1)
		if okID && okQty {
			return PickQuantity{ProductID: id, Quantity: qty}
		}
	case tokQuantityOther:
		if id, ok := argID(args, 0); ok {
			return AskQuantity{ProductID: id}
		}
	case tokCart:
		page, ok := argInt(args, 0)
		if !ok {
			page = 1
		}
		return ShowCart{Page: page}
	case tokCartDelete:
		if i, ok := argInt(args, 0); ok {
			return RemoveItem{Index: i}
		}
	case tokCartInc:
		if i, ok := argInt(args, 0); ok {
			return IncrementItem{Index: i}
		}
	case tokCartDec:
		if i, ok := argInt(args, 0); ok {
			return DecrementItem{Index: i}
		}
	case tokCartClear:
		return ClearCart{}
	case tokCheckout:
		return Checkout{}
	case tokNoteYes:
		return AddNote{}
	case tokNoteNo:
		return SkipNote{}
	case tokOrders:
		page, ok := argInt(args, 0)
		if !ok {
			page = 1
		}
		return ShowOrders{Page: page}
	case tokOrder:
		if len(args) == 1 && strings.TrimSpace(args[0]) != "" {
			return ShowOrder{ID: strings.TrimSpace(args[0])}
		}
	case tokNoop:
		return Noop{}
	}
	return unknown
}

func argInt(args []string, i int) (int, bool) {
	if i >= len(args) {
		return 0, false
	}
	return atoi(args[i])
}

func argID(args []string, i int) (int64, bool) {
	if i >= len(args) {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.TrimSpace(args[i]), 10, 64)
	return v, err == nil && v >= 0
}

func atoi(s string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	return v, err == nil
}

func token(name string, args ...any) string {
	if len(args) == 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(name)
	for _, arg := range args {
		b.WriteByte('|')
		switch v := arg.(type) {
		case string:
			b.WriteString(v)
		case int:
			b.WriteString(strconv.Itoa(v))
		case int64:
			b.WriteString(strconv.FormatInt(v, 10))
		}
	}
	return b.String()
}
