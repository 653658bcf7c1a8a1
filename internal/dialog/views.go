package dialog

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/SIMPLIKARG/TESTING/internal/domain"
	"github.com/SIMPLIKARG/TESTING/internal/platform/pagination"
	"github.com/SIMPLIKARG/TESTING/internal/platform/textutil"
	"github.com/SIMPLIKARG/TESTING/internal/services"
)

const (
	productNameLimit = 35
	cartNameLimit    = 25
	dateLayout       = "02/01/2006 15:04"
)

func button(text, tok string) Button {
	return Button{Text: text, Token: tok}
}

// prompt is a message with one button per row.
func prompt(text string, buttons ...Button) Directive {
	d := Directive{Text: text}
	for _, b := range buttons {
		d.Buttons = append(d.Buttons, []Button{b})
	}
	return d
}

// formatMoney renders an amount with Spanish digit grouping.
func formatMoney(m domain.Money) string {
	p := message.NewPrinter(language.Spanish)
	if m.Whole() {
		return p.Sprintf("$%d", int64(m/100))
	}
	return p.Sprintf("$%.2f", m.Float())
}

func navRow(current, total int, pageToken func(int) string) []Button {
	if total <= 1 {
		return nil
	}
	var row []Button
	if current > 1 {
		row = append(row, button("⬅️ Anterior", pageToken(current-1)))
	}
	row = append(row, button(fmt.Sprintf("📄 %d/%d", current, total), tokNoop))
	if current < total {
		row = append(row, button("Siguiente ➡️", pageToken(current+1)))
	}
	return row
}

func menuView() Directive {
	return prompt(msgWelcome,
		button("🛒 Hacer pedido", tokNewOrder),
		button("📋 Ver pedidos", token(tokOrders, 1)),
		button("❓ Ayuda", tokHelp),
	)
}

func helpView() Directive {
	return prompt(msgHelp,
		button("🛒 Hacer pedido", tokNewOrder),
		button("🏠 Menú principal", tokMenu),
	)
}

func notUnderstood() Directive {
	return prompt(msgNotUnderstood, button("🏠 Menú principal", tokMenu))
}

func storeUnavailable() Directive {
	return prompt(msgStoreUnavailable, button("🏠 Menú principal", tokMenu))
}

func needClient() Directive {
	return prompt(msgNeedClient, button("🛒 Hacer pedido", tokNewOrder))
}

func localitiesView(groups []services.LocalityGroup) Directive {
	d := prompt(msgSelectClient, button("🔍 Buscar cliente", tokClientSearch))
	for _, g := range groups {
		label := fmt.Sprintf("📍 %s (%d)", g.Name, len(g.Clients))
		d.Buttons = append(d.Buttons, []Button{button(label, token(tokLocality, 1, g.Name))})
	}
	return d
}

func localityView(name string, clients []domain.Client, page, pageSize int) Directive {
	p := pagination.Paginate(clients, pageSize, page)
	d := Directive{Text: fmt.Sprintf("📍 %s\n📄 Página %d/%d (%d clientes)\n\n👤 Selecciona el cliente:", name, p.Current, p.Total, len(clients))}
	for _, c := range p.Items {
		d.Buttons = append(d.Buttons, []Button{button("👤 "+c.Name, token(tokClient, c.ID))})
	}
	if nav := navRow(p.Current, p.Total, func(n int) string { return token(tokLocality, n, name) }); nav != nil {
		d.Buttons = append(d.Buttons, nav)
	}
	d.Buttons = append(d.Buttons,
		[]Button{button("🔍 Buscar cliente", tokClientSearch)},
		[]Button{button("🔙 Localidades", tokNewOrder)},
	)
	return d
}

func clientResultsView(term string, found []domain.Client, limit int) Directive {
	var b strings.Builder
	fmt.Fprintf(&b, "👥 Clientes encontrados para \"%s\": %d", term, len(found))
	if len(found) > limit {
		fmt.Fprintf(&b, "\n(se muestran los primeros %d, refina la búsqueda)", limit)
		found = found[:limit]
	}
	d := Directive{Text: b.String()}
	for _, c := range found {
		d.Buttons = append(d.Buttons, []Button{button("👤 "+c.Name, token(tokClient, c.ID))})
	}
	d.Buttons = append(d.Buttons,
		[]Button{button("🔍 Buscar de nuevo", tokClientSearch)},
		[]Button{button("📍 Ver todos", tokNewOrder)},
	)
	return d
}

func categoriesView(client domain.Client, orderID string, categories []domain.Category) Directive {
	text := fmt.Sprintf("✅ Cliente: %s\n📋 Pedido: %s\n\n%s", client.Name, orderID, msgSelectCategory)
	d := Directive{Text: text}
	for _, c := range categories {
		d.Buttons = append(d.Buttons, []Button{button("📂 "+c.Name, token(tokCategory, c.ID, 1))})
	}
	d.Buttons = append(d.Buttons,
		[]Button{button("🔍 Buscar producto", token(tokSearch, 0))},
		[]Button{button("🛒 Ver carrito", token(tokCart, 1))},
	)
	return d
}

// productsView renders one page of products and returns the page actually shown.
func productsView(title string, products []domain.Product, page, pageSize int, pageToken func(int) string, categoryID int64) (Directive, int) {
	p := pagination.Paginate(products, pageSize, page)
	text := fmt.Sprintf("%s\n📄 Página %d/%d (%d productos)\n\n🛍️ Selecciona un producto:", title, p.Current, p.Total, len(products))
	d := Directive{Text: text}
	for _, product := range p.Items {
		d.Buttons = append(d.Buttons, []Button{button("🛍️ "+textutil.Truncate(product.Name, productNameLimit), token(tokProduct, product.ID))})
	}
	if nav := navRow(p.Current, p.Total, pageToken); nav != nil {
		d.Buttons = append(d.Buttons, nav)
	}
	d.Buttons = append(d.Buttons,
		[]Button{button("🔍 Buscar", token(tokSearch, categoryID)), button("🛒 Carrito", token(tokCart, 1))},
		[]Button{button("🔙 Categorías", tokCategories)},
	)
	return d, p.Current
}

// backToListing is the token returning to the listing a product was picked from.
func backToListing(b domain.Browse) string {
	page := max(b.Page, 1)
	switch {
	case b.FromSearch:
		return token(tokResults, page)
	case b.CategoryID > 0:
		return token(tokCategory, b.CategoryID, page)
	}
	return tokCategories
}

func quantityView(product domain.Product, price domain.Money, back string) Directive {
	text := fmt.Sprintf("🛍️ %s\n💰 Precio: %s\n\n¿Cuántas unidades?", product.Name, formatMoney(price))
	row := func(from, to int) []Button {
		var r []Button
		for n := from; n <= to; n++ {
			r = append(r, button(fmt.Sprintf("x%d", n), token(tokQuantity, product.ID, n)))
		}
		return r
	}
	return Directive{
		Text: text,
		Buttons: [][]Button{
			row(1, 3),
			append(row(4, 5), button("🔢 Otra", token(tokQuantityOther, product.ID))),
			{button("🔙 Volver", back)},
		},
	}
}

func addedView(item domain.CartItem, added bool, cart domain.Cart) Directive {
	status := "Cantidad actualizada en el carrito"
	if added {
		status = "Producto agregado al carrito"
	}
	count, total := services.Totals(cart)
	text := fmt.Sprintf("✅ %s\n🛍️ %s\n📦 Cantidad: %d\n💰 Subtotal: %s\n\n🛒 Total carrito: %d items - %s",
		status, item.ProductName, item.Quantity, formatMoney(item.Subtotal), count, formatMoney(total))
	return prompt(text,
		button("➕ Seguir comprando", tokCategories),
		button("🛒 Ver carrito", token(tokCart, 1)),
		button("✅ Finalizar pedido", tokCheckout),
	)
}

func emptyCartView(hasClient bool) Directive {
	if hasClient {
		return prompt(msgCartEmpty, button("🛍️ Empezar a comprar", tokCategories))
	}
	return prompt(msgCartEmpty, button("🛒 Hacer pedido", tokNewOrder))
}

func cartClearedView(hasClient bool) Directive {
	if hasClient {
		return prompt(msgCartCleared, button("🛍️ Empezar a comprar", tokCategories))
	}
	return prompt(msgCartCleared, button("🏠 Menú principal", tokMenu))
}

func cartView(cart domain.Cart, page, pageSize int) Directive {
	p := pagination.Paginate(cart.Items, pageSize, page)
	offset := p.Offset(pageSize)
	count, total := services.Totals(cart)

	var b strings.Builder
	fmt.Fprintf(&b, "🛒 *Tu carrito* (página %d/%d)\n\n", p.Current, p.Total)
	d := Directive{}
	for i, item := range p.Items {
		index := offset + i
		fmt.Fprintf(&b, "%d. %s\n   📦 %d x %s = %s\n\n", index+1, item.ProductName, item.Quantity, formatMoney(item.UnitPrice), formatMoney(item.Subtotal))
		d.Buttons = append(d.Buttons, []Button{
			button("🗑️ "+textutil.Truncate(item.ProductName, cartNameLimit), token(tokCartDelete, index)),
			button("➖", token(tokCartDec, index)),
			button("➕", token(tokCartInc, index)),
		})
	}
	fmt.Fprintf(&b, "📦 Items: %d\n💰 *Total: %s*", count, formatMoney(total))
	d.Text = b.String()

	if nav := navRow(p.Current, p.Total, func(n int) string { return token(tokCart, n) }); nav != nil {
		d.Buttons = append(d.Buttons, nav)
	}
	d.Buttons = append(d.Buttons,
		[]Button{button("➕ Seguir comprando", tokCategories)},
		[]Button{button("✅ Finalizar pedido", tokCheckout)},
		[]Button{button("🗑️ Vaciar carrito", tokCartClear)},
	)
	return d
}

func noteChoiceView() Directive {
	return Directive{
		Text:    msgNoteChoice,
		Buttons: [][]Button{{button("✅ Sí", tokNoteYes), button("❌ No", tokNoteNo)}},
	}
}

func orderSummary(order domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 ID: %s\n👤 Cliente: %s\n📅 Fecha: %s\n📦 Items: %d\n💰 Total: %s",
		order.ID, order.ClientName, order.CreatedAt.Format(dateLayout), order.ItemCount, formatMoney(order.Total))
	if order.Note != "" {
		fmt.Fprintf(&b, "\n📝 Observación: %s", order.Note)
	}
	fmt.Fprintf(&b, "\n⏳ Estado: %s", order.Status)
	return b.String()
}

func confirmationView(order domain.Order) Directive {
	text := "✅ *Pedido registrado*\n\n" + orderSummary(order) + "\n\n🎉 ¡Gracias por tu pedido!"
	return prompt(text,
		button("🛒 Nuevo pedido", tokNewOrder),
		button("🏠 Menú principal", tokMenu),
	)
}

func queuedView(order domain.Order) Directive {
	text := "⏳ *Pedido recibido*\n\n" + orderSummary(order) +
		"\n\nEstamos terminando de guardarlo, no hace falta repetirlo."
	return prompt(text,
		button("🛒 Nuevo pedido", tokNewOrder),
		button("🏠 Menú principal", tokMenu),
	)
}

func ordersView(orders []domain.Order, page, pageSize int) Directive {
	p := pagination.Paginate(orders, pageSize, page)
	d := Directive{Text: fmt.Sprintf("📋 Últimos pedidos (página %d/%d):", p.Current, p.Total)}
	for _, o := range p.Items {
		label := fmt.Sprintf("%s · %s · %s", o.ID, textutil.Truncate(o.ClientName, cartNameLimit), formatMoney(o.Total))
		d.Buttons = append(d.Buttons, []Button{button(label, token(tokOrder, o.ID))})
	}
	if nav := navRow(p.Current, p.Total, func(n int) string { return token(tokOrders, n) }); nav != nil {
		d.Buttons = append(d.Buttons, nav)
	}
	d.Buttons = append(d.Buttons, []Button{button("🏠 Menú principal", tokMenu)})
	return d
}

func orderDetailView(order domain.Order, lines []domain.OrderLine) Directive {
	var b strings.Builder
	b.WriteString("📋 *Detalle del pedido*\n\n")
	b.WriteString(orderSummary(order))
	if len(lines) > 0 {
		b.WriteString("\n\n")
		for _, l := range lines {
			fmt.Fprintf(&b, "• %s: %d x %s = %s\n", l.ProductName, l.Quantity, formatMoney(l.UnitPrice), formatMoney(l.Subtotal))
		}
	}
	return prompt(strings.TrimRight(b.String(), "\n"),
		button("🔙 Pedidos", token(tokOrders, 1)),
		button("🏠 Menú principal", tokMenu),
	)
}
