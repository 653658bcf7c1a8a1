package dialog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/SIMPLIKARG/TESTING/internal/catalog"
	"github.com/SIMPLIKARG/TESTING/internal/domain"
	"github.com/SIMPLIKARG/TESTING/internal/platform/config"
	"github.com/SIMPLIKARG/TESTING/internal/platform/metrics"
	"github.com/SIMPLIKARG/TESTING/internal/platform/observability"
	"github.com/SIMPLIKARG/TESTING/internal/repositories"
	"github.com/SIMPLIKARG/TESTING/internal/services"
)

// Catalog loads the typed catalog tables.
type Catalog interface {
	Clients(ctx context.Context) catalog.Loaded[domain.Client]
	Categories(ctx context.Context) catalog.Loaded[domain.Category]
	Products(ctx context.Context) catalog.Loaded[domain.Product]
	Orders(ctx context.Context) catalog.Loaded[domain.Order]
	OrderLines(ctx context.Context) catalog.Loaded[domain.OrderLine]
}

// OrderPlacer commits a session's cart as an order.
type OrderPlacer interface {
	Checkout(ctx context.Context, session *domain.Session, note string) (domain.Order, error)
	NoteMaxLength() int
}

// Deps bundles the collaborators of the dialog engine.
type Deps struct {
	Sessions repositories.SessionRepository
	Catalog  Catalog
	Orders   OrderPlacer
	Sequence services.Sequencer
	Cart     *services.CartManager
	Limits   config.LimitsConfig
	Clock    func() time.Time
	Logger   *zap.Logger
	Metrics  *metrics.Registry
}

// Engine drives the ordering conversation. Events of one user are handled one
// at a time; different users proceed in parallel.
type Engine struct {
	sessions repositories.SessionRepository
	catalog  Catalog
	orders   OrderPlacer
	sequence services.Sequencer
	cart     *services.CartManager
	limits   config.LimitsConfig
	clock    func() time.Time
	logger   *zap.Logger
	metrics  *metrics.Registry

	locks [lockStripes]sync.Mutex
}

// lockStripes bounds the per-user locks; users sharing a stripe are serialised.
const lockStripes = 64

// New validates deps and returns an Engine.
func New(deps Deps) (*Engine, error) {
	if deps.Sessions == nil {
		return nil, errors.New("dialog: session repository is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("dialog: catalog is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("dialog: order placer is required")
	}
	if deps.Sequence == nil {
		return nil, errors.New("dialog: sequence generator is required")
	}
	cart := deps.Cart
	if cart == nil {
		cart = services.NewCartManager(deps.Limits.MaxQuantity)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Engine{
		sessions: deps.Sessions,
		catalog:  deps.Catalog,
		orders:   deps.Orders,
		sequence: deps.Sequence,
		cart:     cart,
		limits:   withLimitDefaults(deps.Limits, cart.MaxQuantity(), deps.Orders.NoteMaxLength()),
		clock:    clock,
		logger:   observability.Named(deps.Logger, "dialog"),
		metrics:  deps.Metrics,
	}, nil
}

func withLimitDefaults(l config.LimitsConfig, maxQty, noteMax int) config.LimitsConfig {
	if l.ProductPageSize <= 0 {
		l.ProductPageSize = 8
	}
	if l.CartPageSize <= 0 {
		l.CartPageSize = 5
	}
	if l.ClientPageSize <= 0 {
		l.ClientPageSize = 10
	}
	if l.SearchMinLength <= 0 {
		l.SearchMinLength = 2
	}
	l.MaxQuantity = maxQty
	if noteMax > 0 {
		l.NoteMaxLength = noteMax
	} else if l.NoteMaxLength <= 0 {
		l.NoteMaxLength = 500
	}
	return l
}

// Handle applies one event to the user's session and returns the reply.
// Only session store failures are returned as errors; everything else is
// answered with a message.
func (e *Engine) Handle(ctx context.Context, ev Event) (Directive, error) {
	if ev.UserID == 0 {
		return Directive{}, errors.New("dialog: user id is required")
	}
	unlock := e.lock(ev.UserID)
	defer unlock()

	session, err := e.sessions.Get(ctx, ev.UserID)
	if err != nil {
		return Directive{}, fmt.Errorf("load session: %w", err)
	}
	if session.Step == domain.StepConfirmed {
		session.Step = domain.StepIdle
	}
	from := session.Step
	action := ParseEvent(ev)
	e.metrics.DialogEvent(string(ev.Kind))

	reply := e.dispatch(ctx, &session, action)

	session.UpdatedAt = e.clock().UTC()
	if err := e.sessions.Set(ctx, session); err != nil {
		return Directive{}, fmt.Errorf("save session: %w", err)
	}
	e.logger.Debug("event handled",
		zap.Int64("userId", ev.UserID),
		zap.String("kind", string(ev.Kind)),
		zap.String("action", fmt.Sprintf("%T", action)),
		zap.String("from", string(from)),
		zap.String("to", string(session.Step)),
	)
	return reply, nil
}

func (e *Engine) lock(userID int64) func() {
	mu := &e.locks[lockStripe(userID)]
	mu.Lock()
	return mu.Unlock
}

func lockStripe(userID int64) uint64 {
	return uint64(userID) % lockStripes
}

func (e *Engine) dispatch(ctx context.Context, s *domain.Session, action Action) Directive {
	switch a := action.(type) {
	case ShowMenu:
		s.ResetOrder()
		return menuView()
	case ShowHelp:
		return helpView()
	case NewOrder:
		return e.startOrder(ctx, s)
	case SearchClients:
		s.Step = domain.StepSearchingClient
		s.ReturnStep = domain.StepSelectingClient
		return prompt(msgClientSearchPrompt, button("🔙 Volver", tokNewOrder))
	case ShowLocality:
		return e.showLocality(ctx, s, a.Name, a.Page)
	case PickClient:
		return e.pickClient(ctx, s, a.ID)
	case ShowCategories:
		return e.showCategories(ctx, s)
	case ShowCategory:
		return e.showCategory(ctx, s, a.ID, a.Page)
	case ShowResults:
		return e.showResults(ctx, s, a.Page)
	case SearchProducts:
		return e.askProductSearch(s, a.CategoryID)
	case PickProduct:
		return e.pickProduct(ctx, s, a.ID)
	case PickQuantity:
		return e.addToCart(ctx, s, a.ProductID, a.Quantity)
	case AskQuantity:
		return e.askQuantity(s, a.ProductID)
	case ShowCart:
		return e.showCart(s, a.Page)
	case RemoveItem:
		return e.removeItem(s, a.Index)
	case IncrementItem:
		return e.adjustItem(s, a.Index, 1)
	case DecrementItem:
		return e.adjustItem(s, a.Index, -1)
	case ClearCart:
		return e.clearCart(s)
	case Checkout:
		return e.checkout(s)
	case AddNote:
		return e.askNote(s)
	case SkipNote:
		if s.Cart.Empty() || s.Client == nil {
			return notUnderstood()
		}
		if s.Step != domain.StepAwaitingNoteChoice && s.Step != domain.StepWritingNote {
			// stale button: offer the note choice again
			return e.checkout(s)
		}
		return e.commit(ctx, s, "")
	case ShowOrders:
		return e.showOrders(ctx, a.Page)
	case ShowOrder:
		return e.showOrder(ctx, a.ID)
	case Noop:
		return Directive{}
	case Text:
		return e.handleText(ctx, s, a.Value)
	case Unknown:
		return notUnderstood()
	}
	return notUnderstood()
}

func (e *Engine) handleText(ctx context.Context, s *domain.Session, text string) Directive {
	switch s.Step {
	case domain.StepSearchingClient:
		return e.searchClients(ctx, s, text)
	case domain.StepSearchingProduct:
		return e.searchProducts(ctx, s, text)
	case domain.StepCustomQuantity:
		return e.customQuantity(ctx, s, text)
	case domain.StepWritingNote:
		return e.writeNote(ctx, s, text)
	case domain.StepIdle,
		domain.StepSelectingClient,
		domain.StepSelectingCategory,
		domain.StepSelectingProduct,
		domain.StepSelectingQuantity,
		domain.StepCartReview,
		domain.StepAwaitingNoteChoice,
		domain.StepConfirmed:
		return notUnderstood()
	}
	return notUnderstood()
}

// startOrder begins client selection. A provisional order id survives so it
// is never redrawn within the session.
func (e *Engine) startOrder(ctx context.Context, s *domain.Session) Directive {
	clients := e.catalog.Clients(ctx)
	if clients.Unavailable() {
		return storeUnavailable()
	}
	if len(clients.Items) == 0 {
		return prompt(msgNoClients, button("🏠 Menú principal", tokMenu))
	}
	orderID := s.OrderID
	s.ResetOrder()
	s.OrderID = orderID
	s.Step = domain.StepSelectingClient
	return localitiesView(services.GroupByLocality(clients.Items))
}

func (e *Engine) showLocality(ctx context.Context, s *domain.Session, name string, page int) Directive {
	clients := e.catalog.Clients(ctx)
	if clients.Unavailable() {
		return storeUnavailable()
	}
	members := services.ClientsInLocality(clients.Items, name)
	if len(members) == 0 {
		return prompt(msgLocalityEmpty, button("🔙 Volver", tokNewOrder))
	}
	s.Step = domain.StepSelectingClient
	s.Browse.Locality = name
	return localityView(name, members, page, e.limits.ClientPageSize)
}

func (e *Engine) searchClients(ctx context.Context, s *domain.Session, text string) Directive {
	term := strings.TrimSpace(text)
	if utf8.RuneCountInString(term) < e.limits.SearchMinLength {
		return prompt(fmt.Sprintf(msgSearchTooShort, e.limits.SearchMinLength), button("🔙 Volver", tokNewOrder))
	}
	clients := e.catalog.Clients(ctx)
	if clients.Unavailable() {
		return storeUnavailable()
	}
	found := services.SearchClients(clients.Items, term)
	if len(found) == 0 {
		return Directive{
			Text: fmt.Sprintf(msgNoClientMatch, term),
			Buttons: [][]Button{
				{button("🔍 Buscar de nuevo", tokClientSearch)},
				{button("📍 Ver todos", tokNewOrder)},
			},
		}
	}
	return clientResultsView(term, found, e.limits.ClientPageSize)
}

func (e *Engine) pickClient(ctx context.Context, s *domain.Session, id int64) Directive {
	clients := e.catalog.Clients(ctx)
	if clients.Unavailable() {
		return storeUnavailable()
	}
	client, ok := services.FindClient(clients.Items, id)
	if !ok {
		return prompt(msgClientNotFound, button("🔙 Volver", tokNewOrder))
	}
	if s.Client != nil && s.Client.ID != client.ID {
		e.cart.Clear(&s.Cart)
	}
	s.Client = &client
	if s.OrderID == "" {
		s.OrderID = e.sequence.Next(ctx)
	}
	s.ReturnStep = ""
	return e.showCategories(ctx, s)
}

func (e *Engine) showCategories(ctx context.Context, s *domain.Session) Directive {
	if s.Client == nil {
		return needClient()
	}
	categories := e.catalog.Categories(ctx)
	if categories.Unavailable() {
		return storeUnavailable()
	}
	s.Step = domain.StepSelectingCategory
	s.PendingProductID = 0
	return categoriesView(*s.Client, s.OrderID, categories.Items)
}

func (e *Engine) showCategory(ctx context.Context, s *domain.Session, categoryID int64, page int) Directive {
	if s.Client == nil {
		return needClient()
	}
	products := e.catalog.Products(ctx)
	if products.Unavailable() {
		return storeUnavailable()
	}
	listed := services.ActiveInCategory(products.Items, categoryID)
	title := e.categoryName(ctx, categoryID)
	if len(listed) == 0 {
		return prompt(msgCategoryEmpty, button("🔙 Categorías", tokCategories))
	}
	view, current := productsView(title, listed, page, e.limits.ProductPageSize, func(p int) string {
		return token(tokCategory, categoryID, p)
	}, categoryID)
	s.Step = domain.StepSelectingProduct
	s.Browse = domain.Browse{CategoryID: categoryID, Page: current, Locality: s.Browse.Locality}
	return view
}

func (e *Engine) categoryName(ctx context.Context, id int64) string {
	categories := e.catalog.Categories(ctx)
	for _, c := range categories.Items {
		if c.ID == id {
			return c.Name
		}
	}
	return "Productos"
}

func (e *Engine) askProductSearch(s *domain.Session, categoryID int64) Directive {
	if s.Client == nil {
		return needClient()
	}
	back := button("🔙 Categorías", tokCategories)
	if categoryID > 0 {
		back = button("🔙 Volver", token(tokCategory, categoryID, 1))
	}
	s.ReturnStep = s.Step
	s.Step = domain.StepSearchingProduct
	s.Search = domain.SearchScope{CategoryID: categoryID}
	return prompt(fmt.Sprintf(msgProductSearchPrompt, e.limits.SearchMinLength), back)
}

func (e *Engine) searchProducts(ctx context.Context, s *domain.Session, text string) Directive {
	term := strings.TrimSpace(text)
	if utf8.RuneCountInString(term) < e.limits.SearchMinLength {
		return prompt(fmt.Sprintf(msgSearchTooShort, e.limits.SearchMinLength), button("🔙 Categorías", tokCategories))
	}
	products := e.catalog.Products(ctx)
	if products.Unavailable() {
		return storeUnavailable()
	}
	found := services.SearchProducts(products.Items, term, s.Search.CategoryID)
	if len(found) == 0 {
		return Directive{
			Text: fmt.Sprintf(msgNoProductMatch, term),
			Buttons: [][]Button{
				{button("🔍 Buscar de nuevo", token(tokSearch, s.Search.CategoryID))},
				{button("📂 Ver categorías", tokCategories)},
			},
		}
	}
	s.Search.Term = term
	s.ReturnStep = ""
	return e.renderResults(s, found, 1)
}

func (e *Engine) showResults(ctx context.Context, s *domain.Session, page int) Directive {
	if s.Client == nil {
		return needClient()
	}
	if s.Search.Term == "" {
		return e.askProductSearch(s, s.Search.CategoryID)
	}
	products := e.catalog.Products(ctx)
	if products.Unavailable() {
		return storeUnavailable()
	}
	found := services.SearchProducts(products.Items, s.Search.Term, s.Search.CategoryID)
	if len(found) == 0 {
		return prompt(fmt.Sprintf(msgNoProductMatch, s.Search.Term), button("📂 Ver categorías", tokCategories))
	}
	return e.renderResults(s, found, page)
}

func (e *Engine) renderResults(s *domain.Session, found []domain.Product, page int) Directive {
	title := fmt.Sprintf("🔍 Resultados para \"%s\"", s.Search.Term)
	view, current := productsView(title, found, page, e.limits.ProductPageSize, func(p int) string {
		return token(tokResults, p)
	}, s.Search.CategoryID)
	s.Step = domain.StepSelectingProduct
	s.Browse = domain.Browse{CategoryID: s.Search.CategoryID, Page: current, FromSearch: true, Locality: s.Browse.Locality}
	return view
}

func (e *Engine) pickProduct(ctx context.Context, s *domain.Session, id int64) Directive {
	if s.Client == nil {
		return needClient()
	}
	product, d, ok := e.activeProduct(ctx, id)
	if !ok {
		return d
	}
	s.Step = domain.StepSelectingQuantity
	s.PendingProductID = product.ID
	return quantityView(product, services.Price(product, s.Client.PriceTier), backToListing(s.Browse))
}

func (e *Engine) activeProduct(ctx context.Context, id int64) (domain.Product, Directive, bool) {
	products := e.catalog.Products(ctx)
	if products.Unavailable() {
		return domain.Product{}, storeUnavailable(), false
	}
	product, ok := services.FindProduct(products.Items, id)
	if !ok || !product.Active {
		return domain.Product{}, prompt(msgProductNotFound, button("🔙 Categorías", tokCategories)), false
	}
	return product, Directive{}, true
}

func (e *Engine) askQuantity(s *domain.Session, productID int64) Directive {
	if s.Client == nil {
		return needClient()
	}
	s.ReturnStep = domain.StepSelectingQuantity
	s.Step = domain.StepCustomQuantity
	s.PendingProductID = productID
	return prompt(fmt.Sprintf(msgQuantityPrompt, e.limits.MaxQuantity), button("🔙 Volver", token(tokProduct, productID)))
}

func (e *Engine) customQuantity(ctx context.Context, s *domain.Session, text string) Directive {
	qty, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || qty < 1 {
		return prompt(msgQuantityInvalid, button("🔙 Volver", token(tokProduct, s.PendingProductID)))
	}
	if qty > e.limits.MaxQuantity {
		return prompt(fmt.Sprintf(msgQuantityTooLarge, e.limits.MaxQuantity), button("🔙 Volver", token(tokProduct, s.PendingProductID)))
	}
	return e.addToCart(ctx, s, s.PendingProductID, qty)
}

func (e *Engine) addToCart(ctx context.Context, s *domain.Session, productID int64, qty int) Directive {
	if s.Client == nil {
		return needClient()
	}
	product, d, ok := e.activeProduct(ctx, productID)
	if !ok {
		return d
	}
	before := len(s.Cart.Items)
	item, err := e.cart.Add(&s.Cart, product, qty, services.Price(product, s.Client.PriceTier))
	switch {
	case errors.Is(err, services.ErrQuantityExceeded):
		return prompt(fmt.Sprintf(msgQuantityExceeded, e.limits.MaxQuantity), button("🛒 Ver carrito", token(tokCart, 1)))
	case err != nil:
		return prompt(msgQuantityInvalid, button("🔙 Volver", token(tokProduct, productID)))
	}
	s.Step = domain.StepSelectingCategory
	s.ReturnStep = ""
	s.PendingProductID = 0
	return addedView(item, len(s.Cart.Items) > before, s.Cart)
}

func (e *Engine) showCart(s *domain.Session, page int) Directive {
	if s.Cart.Empty() {
		if s.Step == domain.StepCartReview {
			s.Step = domain.StepIdle
			if s.Client != nil {
				s.Step = domain.StepSelectingCategory
			}
		}
		return emptyCartView(s.Client != nil)
	}
	s.Step = domain.StepCartReview
	return cartView(s.Cart, page, e.limits.CartPageSize)
}

func (e *Engine) removeItem(s *domain.Session, index int) Directive {
	if _, err := e.cart.Remove(&s.Cart, index); err != nil {
		return e.cartNotice(s, msgItemNotFound, index)
	}
	return e.cartNotice(s, "", index)
}

func (e *Engine) adjustItem(s *domain.Session, index, delta int) Directive {
	_, err := e.cart.SetQuantity(&s.Cart, index, delta)
	switch {
	case errors.Is(err, services.ErrQuantityExceeded):
		return e.cartNotice(s, fmt.Sprintf(msgQuantityExceeded, e.limits.MaxQuantity), index)
	case err != nil:
		return e.cartNotice(s, msgItemNotFound, index)
	}
	return e.cartNotice(s, "", index)
}

// cartNotice re-renders the cart page holding index with an optional notice on top.
func (e *Engine) cartNotice(s *domain.Session, notice string, index int) Directive {
	d := e.showCart(s, index/e.limits.CartPageSize+1)
	if notice != "" {
		d.Text = notice + "\n\n" + d.Text
	}
	return d
}

func (e *Engine) clearCart(s *domain.Session) Directive {
	e.cart.Clear(&s.Cart)
	if s.Client != nil {
		s.Step = domain.StepSelectingCategory
	} else {
		s.Step = domain.StepIdle
	}
	return cartClearedView(s.Client != nil)
}

func (e *Engine) checkout(s *domain.Session) Directive {
	if s.Cart.Empty() {
		return emptyCartView(s.Client != nil)
	}
	if s.Client == nil {
		return needClient()
	}
	s.Step = domain.StepAwaitingNoteChoice
	return noteChoiceView()
}

func (e *Engine) askNote(s *domain.Session) Directive {
	if s.Cart.Empty() || s.Client == nil {
		return notUnderstood()
	}
	s.Step = domain.StepWritingNote
	return prompt(fmt.Sprintf(msgNotePrompt, e.limits.NoteMaxLength), button("❌ Sin observación", tokNoteNo))
}

func (e *Engine) writeNote(ctx context.Context, s *domain.Session, text string) Directive {
	note := strings.TrimSpace(text)
	if note == "" {
		return prompt(msgNoteEmpty, button("❌ Sin observación", tokNoteNo))
	}
	if utf8.RuneCountInString(note) > e.limits.NoteMaxLength {
		return prompt(fmt.Sprintf(msgNoteTooLong, e.limits.NoteMaxLength), button("❌ Sin observación", tokNoteNo))
	}
	return e.commit(ctx, s, note)
}

func (e *Engine) commit(ctx context.Context, s *domain.Session, note string) Directive {
	step := s.Step
	order, err := e.orders.Checkout(ctx, s, note)
	if err == nil {
		s.Step = domain.StepConfirmed
		return confirmationView(order)
	}

	var partial *services.PartialCommitError
	switch {
	case errors.As(err, &partial) && partial.Queued:
		s.Step = domain.StepConfirmed
		return queuedView(order)
	case errors.Is(err, services.ErrNoteTooLong):
		s.Step = domain.StepWritingNote
		return prompt(fmt.Sprintf(msgNoteTooLong, e.limits.NoteMaxLength), button("❌ Sin observación", tokNoteNo))
	case errors.Is(err, services.ErrNoteMarkup):
		s.Step = domain.StepWritingNote
		return prompt(msgNoteMarkup, button("❌ Sin observación", tokNoteNo))
	case errors.Is(err, services.ErrInvalidCheckoutState):
		return prompt(msgCheckoutInvalid, button("🛒 Ver carrito", token(tokCart, 1)))
	}
	e.logger.Error("checkout failed",
		zap.Int64("userId", s.UserID),
		zap.String("orderId", order.ID),
		zap.Error(err),
	)
	s.Step = step
	return Directive{
		Text: msgCheckoutFailed,
		Buttons: [][]Button{
			{button("✅ Reintentar", tokCheckout)},
			{button("🛒 Ver carrito", token(tokCart, 1))},
		},
	}
}

func (e *Engine) showOrders(ctx context.Context, page int) Directive {
	orders := e.catalog.Orders(ctx)
	if orders.Unavailable() {
		return storeUnavailable()
	}
	if len(orders.Items) == 0 {
		return prompt(msgNoOrders, button("🏠 Menú principal", tokMenu))
	}
	newest := make([]domain.Order, 0, len(orders.Items))
	for i := len(orders.Items) - 1; i >= 0; i-- {
		newest = append(newest, orders.Items[i])
	}
	return ordersView(newest, page, e.limits.CartPageSize)
}

func (e *Engine) showOrder(ctx context.Context, id string) Directive {
	orders := e.catalog.Orders(ctx)
	if orders.Unavailable() {
		return storeUnavailable()
	}
	var (
		order domain.Order
		found bool
	)
	for _, o := range orders.Items {
		if o.ID == id {
			order, found = o, true
			break
		}
	}
	if !found {
		return prompt(msgOrderNotFound, button("🔙 Pedidos", token(tokOrders, 1)))
	}
	var lines []domain.OrderLine
	for _, l := range e.catalog.OrderLines(ctx).Items {
		if l.OrderID == id {
			lines = append(lines, l)
		}
	}
	return orderDetailView(order, lines)
}
