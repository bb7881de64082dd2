package models

// Role is shared reference data, looked up or lazily created at
// registration time.
type Role struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;not null"     json:"name"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Roles        []Role `gorm:"many2many:user_roles"     json:"roles"`
}

type Category struct {
	ID   uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Name string `gorm:"uniqueIndex;not null"     json:"name"`
}

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"not null;index"           json:"name"`
	Brand       string  `json:"brand"`
	Description string  `json:"description"`
	Price       float64 `gorm:"not null"                 json:"price"`
	Inventory   int64   `gorm:"not null;default:0;check:inventory >= 0" json:"inventory"`
	CategoryID  uint    `gorm:"index"                    json:"category_id"`
}

// Cart owns its items; at most one live cart per user. Created lazily
// on the first add, deleted when an order is placed.
type Cart struct {
	ID          uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint       `gorm:"uniqueIndex;not null"     json:"user_id"`
	TotalAmount float64    `gorm:"not null;default:0"       json:"total_amount"`
	Items       []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

// CartItem snapshots the product price at the time it is added, so
// later catalog changes do not retroactively reprice the cart.
type CartItem struct {
	ID         uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID     uint    `gorm:"index;not null"           json:"cart_id"`
	ProductID  uint    `gorm:"not null"                 json:"product_id"`
	Quantity   uint    `gorm:"not null"                 json:"quantity"`
	UnitPrice  float64 `gorm:"not null"                 json:"unit_price"`
	TotalPrice float64 `gorm:"not null"                 json:"total_price"`
}

const OrderStatusPending = "pending"

type Order struct {
	ID        uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint        `gorm:"index;not null"           json:"user_id"`
	CreatedAt int64       `gorm:"not null"                 json:"created_at"`
	Total     float64     `gorm:"not null"                 json:"total"`
	Status    string      `gorm:"not null"                 json:"status"`
	Items     []OrderItem `gorm:"constraint:OnDelete:CASCADE" json:"items"`
}

// OrderItem is a frozen copy of a cart line; never mutated once the
// order exists.
type OrderItem struct {
	ID        uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uint    `gorm:"index;not null"           json:"order_id"`
	ProductID uint    `gorm:"not null"                 json:"product_id"`
	Quantity  uint    `gorm:"not null"                 json:"quantity"`
	Price     float64 `gorm:"not null"                 json:"price"`
}
