package query

// Re-export read models from readmodel package
import "github.com/example/order-engine/internal/readmodel"

type ProductReadModel = readmodel.ProductReadModel
type OrderReadModel = readmodel.OrderReadModel
type PaymentReadModel = readmodel.PaymentReadModel
type InventoryReadModel = readmodel.InventoryReadModel
