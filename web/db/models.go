package db

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	gorm.Model
	FirstName string
	LastName  string
	Email     string `gorm:"unique"`
	Password  string `json:"-"` // bcrypt hash, never serialized
	Phone     string
	Role      Role `gorm:"default:user"`

	IsVerified        bool
	VerifyTokenHash   string // sha256 of the raw token, raw is only emailed
	VerifyTokenExpiry time.Time
	ResetTokenHash    string
	ResetTokenExpiry  time.Time

	LastLogin     time.Time
	LoginAttempts int
	LockUntil     *time.Time

	Language           string `gorm:"default:fr"`  // fr, ar, en
	Currency           string `gorm:"default:TND"` // TND, USD, EUR
	EmailNotifications bool   `gorm:"default:true"`
	SMSNotifications   bool   `gorm:"default:true"`

	Addresses []Address
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Locked reports whether a previous run of failed logins still blocks the account.
func (u *User) Locked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

type Address struct {
	gorm.Model
	UserID    uint
	Kind      string // billing or shipping
	Street    string
	City      string
	State     string
	ZipCode   string
	Country   string `gorm:"default:Tunisia"`
	IsDefault bool
}

const (
	CategoryStreaming = "streaming"
	CategoryGaming    = "gaming"
	CategorySoftware  = "software"
)

type Product struct {
	gorm.Model
	Name        string
	Description string
	Category    string `gorm:"index"`
	BasePrice   float64
	// per-product display rate; order commission is a fixed 15% regardless
	CommissionRate float64 `gorm:"default:15"`
	Image          string
	Currency       string `gorm:"default:TND"`

	IntlAmount   float64
	IntlCurrency string // USD or EUR

	Provider string // Netflix, Spotify, Microsoft, PlayStation, Xbox, Steam
	Duration string // 1_month, 3_months, 6_months, 12_months, lifetime

	Features datatypes.JSON

	Available bool `gorm:"default:true"`
	Stock     int  `gorm:"default:-1"` // -1 means unlimited
}

func (p *Product) FinalPrice() float64 {
	return p.BasePrice * (1 + p.CommissionRate/100)
}

func (p *Product) IsAvailable() bool {
	return p.Available && (p.Stock == -1 || p.Stock > 0)
}

// AvailableProducts narrows a query to purchasable catalog entries.
func AvailableProducts(tx *gorm.DB) *gorm.DB {
	return tx.Where("available = ?", true).Where("stock = -1 OR stock > 0")
}

const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderCompleted  = "completed"
	OrderFailed     = "failed"
	OrderRefunded   = "refunded"
)

type Order struct {
	gorm.Model
	UserID uint `gorm:"index"`
	Items  []OrderItem

	Subtotal   float64
	Commission float64
	Total      float64

	Status string `gorm:"default:pending;index"`

	// gateway session id, unique across orders, nil until payment is initiated
	PaymentID     *string `gorm:"uniqueIndex"`
	PaymentMethod string  `gorm:"default:flouci"`
	PaymentStatus string
	PaymentError  string

	IntlTransactions []IntlTransaction
	ActivationCodes  []ActivationCode

	BillingName    string
	BillingEmail   string
	BillingPhone   string
	BillingAddress string

	CompletedAt *time.Time
	RefundedAt  *time.Time
}

// OrderItem snapshots the product's pricing at order creation so later
// catalog edits never alter historical orders.
type OrderItem struct {
	gorm.Model
	OrderID   uint `gorm:"index"`
	ProductID uint

	Price        float64
	IntlAmount   float64
	IntlCurrency string
}

type IntlTransaction struct {
	gorm.Model
	OrderID uint `gorm:"index"`

	Provider      string
	TransactionID string
	Amount        float64
	Currency      string
	Status        string
	Error         string
}

const (
	CodePending = "pending"
	CodeActive  = "active"
	CodeUsed    = "used"
	CodeExpired = "expired"
)

type ActivationCode struct {
	gorm.Model
	OrderID uint `gorm:"index"`

	Service     string
	Code        string `gorm:"index"`
	Status      string `gorm:"default:pending"`
	ActivatedAt *time.Time
	ExpiresAt   *time.Time
}
