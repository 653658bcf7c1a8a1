package domain

import "time"

// Step is the dialog state of a session.
type Step string

const (
	StepIdle               Step = "idle"
	StepSelectingClient    Step = "selecting_client"
	StepSearchingClient    Step = "searching_client"
	StepSelectingCategory  Step = "selecting_category"
	StepSelectingProduct   Step = "selecting_product"
	StepSearchingProduct   Step = "searching_product"
	StepSelectingQuantity  Step = "selecting_quantity"
	StepCustomQuantity     Step = "custom_quantity_entry"
	StepCartReview         Step = "cart_review"
	StepAwaitingNoteChoice Step = "awaiting_note_choice"
	StepWritingNote        Step = "writing_note"
	StepConfirmed          Step = "confirmed"
)

// SearchScope is the last product search of a session. CategoryID 0 means all categories.
type SearchScope struct {
	CategoryID int64
	Term       string
}

// Browse remembers the listing the user came from so "back" can return to it.
type Browse struct {
	CategoryID int64
	Page       int
	FromSearch bool
	Locality   string
}

// Session is the per-user conversational state.
type Session struct {
	UserID           int64
	Step             Step
	ReturnStep       Step
	Client           *Client
	OrderID          string
	Search           SearchScope
	Browse           Browse
	PendingProductID int64
	Cart             Cart
	UpdatedAt        time.Time
}

// NewSession returns an idle session with an empty cart.
func NewSession(userID int64, now time.Time) Session {
	return Session{
		UserID:    userID,
		Step:      StepIdle,
		UpdatedAt: now,
	}
}

// Clone returns a copy that shares no mutable state with s.
func (s Session) Clone() Session {
	out := s
	if s.Client != nil {
		client := *s.Client
		out.Client = &client
	}
	out.Cart = s.Cart.Clone()
	return out
}

// ResetOrder clears everything tied to the in-progress order and returns to idle.
func (s *Session) ResetOrder() {
	s.Step = StepIdle
	s.ReturnStep = ""
	s.Client = nil
	s.OrderID = ""
	s.Search = SearchScope{}
	s.Browse = Browse{}
	s.PendingProductID = 0
	s.Cart = Cart{}
}
