package dialog

const (
	msgWelcome = "¡Hola! 👋 Bienvenido al sistema de pedidos.\n\n¿Qué deseas hacer?"
	msgHelp    = "📋 *Cómo hacer un pedido*\n\n" +
		"1️⃣ Toca \"🛒 Hacer pedido\"\n" +
		"2️⃣ Selecciona el cliente\n" +
		"3️⃣ Elige una categoría o busca un producto\n" +
		"4️⃣ Indica la cantidad\n" +
		"5️⃣ Revisa el carrito y finaliza el pedido\n\n" +
		"Comandos: /start, /pedido, /carrito, /pedidos, /ayuda"

	msgNotUnderstood    = "❓ No entiendo ese mensaje. Usa /start para comenzar o los botones del menú."
	msgStoreUnavailable = "⚠️ El catálogo no está disponible en este momento. Intenta nuevamente en unos minutos."
	msgNeedClient       = "❌ Primero selecciona un cliente."

	msgSelectClient       = "👤 Selecciona el cliente por localidad o búscalo por nombre:"
	msgClientSearchPrompt = "🔍 Escribe el nombre o código del cliente:"
	msgNoClients          = "❌ No hay clientes disponibles."
	msgLocalityEmpty      = "❌ No hay clientes en esa localidad."
	msgNoClientMatch      = "❌ No se encontraron clientes con \"%s\"."
	msgClientNotFound     = "❌ Cliente no encontrado."
	msgSearchTooShort     = "❌ Escribe al menos %d caracteres para buscar."

	msgSelectCategory      = "📂 Selecciona una categoría:"
	msgCategoryEmpty       = "❌ No hay productos disponibles en esta categoría."
	msgProductSearchPrompt = "🔍 Escribe el nombre o código del producto (mínimo %d caracteres):"
	msgNoProductMatch      = "❌ No se encontraron productos con \"%s\"."
	msgProductNotFound     = "❌ Producto no disponible."

	msgQuantityPrompt   = "🔢 Escribe la cantidad (1 a %d):"
	msgQuantityInvalid  = "❌ Ingresa un número válido mayor a 0."
	msgQuantityTooLarge = "❌ La cantidad máxima es %d."
	msgQuantityExceeded = "❌ Cantidad máxima excedida (%d unidades)."
	msgItemNotFound     = "❌ Producto no encontrado en el carrito."

	msgCartEmpty   = "🛒 Tu carrito está vacío."
	msgCartCleared = "🗑️ Carrito vaciado."

	msgNoteChoice      = "📝 ¿Deseas agregar alguna observación al pedido?"
	msgNotePrompt      = "📝 Escribe tu observación para el pedido (máximo %d caracteres):"
	msgNoteEmpty       = "❌ Escribe una observación válida o toca \"Sin observación\"."
	msgNoteTooLong     = "❌ La observación es muy larga. Máximo %d caracteres."
	msgNoteMarkup      = "❌ La observación no puede contener etiquetas como <texto> ni códigos como &lt;. Escríbela de nuevo."
	msgCheckoutInvalid = "❌ No hay cliente seleccionado o el carrito está vacío."
	msgCheckoutFailed  = "❌ No se pudo registrar el pedido. Tu carrito se mantiene, intenta nuevamente."

	msgNoOrders      = "📋 Todavía no hay pedidos registrados."
	msgOrderNotFound = "❌ Pedido no encontrado."
)
