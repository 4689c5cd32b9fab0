package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"hitechstore/payment/flouci"
	"hitechstore/payment/rates"
	"hitechstore/web/db"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order commission is a fixed 15% of the subtotal, independent of any
// per-product commission rate.
var commissionRate = decimal.NewFromFloat(0.15)

// Service drives an order from creation through gateway payment to
// fulfillment.
type Service struct {
	DB      *gorm.DB
	Gateway *flouci.Client
	Rates   *rates.Source

	// Notify, when set, is called after an order completes. Failures are the
	// notifier's problem; fulfillment never blocks on it.
	Notify func(order *db.Order)
}

func NewService(conn *gorm.DB, gateway *flouci.Client, source *rates.Source) *Service {
	return &Service{DB: conn, Gateway: gateway, Rates: source}
}

type LineItemRequest struct {
	ProductID uint `json:"id" binding:"required"`
}

// CreateOrder resolves the requested products, snapshots their pricing onto
// order lines and persists a pending order. Totals are computed once here;
// later catalog edits never touch them.
func (s *Service) CreateOrder(user *db.User, items []LineItemRequest) (*db.Order, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty cart", ErrInvalidLineItem)
	}

	ids := make([]uint, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}

	var products []db.Product
	if err := s.DB.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]db.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	subtotal := decimal.Zero
	lines := make([]db.OrderItem, 0, len(items))
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok || !product.IsAvailable() {
			return nil, fmt.Errorf("%w: product %d", ErrInvalidLineItem, item.ProductID)
		}
		lines = append(lines, db.OrderItem{
			ProductID:    product.ID,
			Price:        product.BasePrice,
			IntlAmount:   product.IntlAmount,
			IntlCurrency: product.IntlCurrency,
		})
		subtotal = subtotal.Add(decimal.NewFromFloat(product.BasePrice))
	}

	commission := subtotal.Mul(commissionRate).Round(2)
	total := subtotal.Add(commission)

	order := db.Order{
		UserID:     user.ID,
		Items:      lines,
		Subtotal:   subtotal.InexactFloat64(),
		Commission: commission.InexactFloat64(),
		Total:      total.InexactFloat64(),
		Status:     db.OrderPending,

		BillingName:  user.FullName(),
		BillingEmail: user.Email,
		BillingPhone: user.Phone,
	}

	if err := s.DB.Create(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// InitiatePayment opens a gateway session for a pending order and records the
// session id. An order can hold at most one session; re-initiating surfaces
// the duplicate instead of silently opening a second one.
func (s *Service) InitiatePayment(order *db.Order) (*flouci.Session, error) {
	if order.PaymentID != nil {
		return nil, ErrDuplicatePaymentSession
	}

	session, err := s.Gateway.Initiate(orderRef(order), order.Total)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentInitiationFailed, err)
	}

	order.PaymentID = &session.PaymentID
	err = s.DB.Model(order).Update("payment_id", session.PaymentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "Duplicate") {
			return nil, ErrDuplicatePaymentSession
		}
		return nil, err
	}
	return session, nil
}

// VerifyAndFulfill polls the gateway for the order's session status. A
// completed payment triggers fulfillment exactly once; anything else returns
// the order unchanged together with the gateway's raw status.
func (s *Service) VerifyAndFulfill(orderID uint) (*db.Order, string, error) {
	order, err := s.Get(orderID)
	if err != nil {
		return nil, "", err
	}

	if order.Status == db.OrderCompleted || order.Status == db.OrderRefunded {
		return order, flouci.StatusCompleted, nil
	}
	if order.PaymentID == nil {
		return order, flouci.StatusPending, nil
	}

	status, err := s.Gateway.Status(*order.PaymentID)
	if err != nil {
		return nil, "", err
	}

	if status != flouci.StatusCompleted {
		s.DB.Model(order).Update("payment_status", status)
		order.PaymentStatus = status
		return order, status, nil
	}

	if err := s.fulfill(order); err != nil {
		return order, status, err
	}
	completed, err := s.Get(orderID)
	if err != nil {
		return order, status, err
	}
	return completed, status, nil
}

// HandleWebhook applies a gateway notification. Completed payments run the
// same fulfillment transition as polling, so whichever path observes the
// status first wins and the other is a no-op.
func (s *Service) HandleWebhook(paymentID, status string) (*db.Order, error) {
	var order db.Order
	err := s.DB.Preload("Items").Where("payment_id = ?", paymentID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	switch status {
	case flouci.StatusCompleted:
		if err := s.fulfill(&order); err != nil {
			return &order, err
		}
	case flouci.StatusFailed:
		// terminal only from pending; a completed order is never demoted
		s.DB.Model(&db.Order{}).
			Where("id = ? AND status = ?", order.ID, db.OrderPending).
			Updates(map[string]any{"status": db.OrderFailed, "payment_status": status})
	default:
		s.DB.Model(&order).Update("payment_status", status)
	}

	reloaded, err := s.reload(order.ID)
	if err != nil {
		return &order, nil
	}
	return reloaded, nil
}

// fulfill runs the post-payment side effects at most once per order: currency
// conversion, provider activation, stock decrement and the completed
// transition. The pending→processing compare-and-swap is the idempotency
// guard; a second caller sees zero affected rows and backs off.
//
// A provider failure mid-loop aborts the remaining items without rolling back
// codes already issued or stock already decremented.
func (s *Service) fulfill(order *db.Order) error {
	claim := s.DB.Model(&db.Order{}).
		Where("id = ? AND status = ?", order.ID, db.OrderPending).
		Update("status", db.OrderProcessing)
	if claim.Error != nil {
		return claim.Error
	}
	if claim.RowsAffected == 0 {
		return nil // someone else fulfilled, or the order is already terminal
	}

	allRates, err := s.Rates.Rates()
	if err != nil {
		return err
	}

	for _, item := range order.Items {
		var product db.Product
		if err := s.DB.First(&product, item.ProductID).Error; err != nil {
			return err
		}

		factor, ok := allRates[product.IntlCurrency]
		if !ok {
			return fmt.Errorf("no rate for %s", product.IntlCurrency)
		}
		intlAmount := item.Price * factor

		act, err := activate(product.Provider, product.Duration, intlAmount, product.IntlCurrency)
		if err != nil {
			s.DB.Create(&db.IntlTransaction{
				OrderID:  order.ID,
				Provider: product.Provider,
				Amount:   intlAmount,
				Currency: product.IntlCurrency,
				Status:   "failed",
				Error:    err.Error(),
			})
			return err
		}

		now := time.Now()
		s.DB.Create(&db.IntlTransaction{
			OrderID:       order.ID,
			Provider:      product.Provider,
			TransactionID: act.TransactionID,
			Amount:        intlAmount,
			Currency:      product.IntlCurrency,
			Status:        "completed",
		})
		s.DB.Create(&db.ActivationCode{
			OrderID:     order.ID,
			Service:     product.Provider,
			Code:        act.Code,
			Status:      db.CodeActive,
			ActivatedAt: &now,
			ExpiresAt:   act.ExpiresAt,
		})

		// finite stock only; -1 is unlimited and the guard keeps 0 from going negative
		s.DB.Model(&db.Product{}).
			Where("id = ? AND stock > 0", product.ID).
			Update("stock", gorm.Expr("stock - 1"))
	}

	now := time.Now()
	err = s.DB.Model(&db.Order{}).
		Where("id = ? AND status = ?", order.ID, db.OrderProcessing).
		Updates(map[string]any{
			"status":         db.OrderCompleted,
			"completed_at":   now,
			"payment_status": flouci.StatusCompleted,
		}).Error
	if err != nil {
		return err
	}

	if s.Notify != nil {
		if completed, err := s.reload(order.ID); err == nil {
			go s.Notify(completed)
		}
	}
	return nil
}

// RefundOrder moves a completed order to refunded. No stock reversal and no
// gateway-side refund call happens here.
func (s *Service) RefundOrder(orderID uint) (*db.Order, error) {
	order, err := s.Get(orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != db.OrderCompleted {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, order.Status, db.OrderRefunded)
	}

	now := time.Now()
	res := s.DB.Model(&db.Order{}).
		Where("id = ? AND status = ?", order.ID, db.OrderCompleted).
		Updates(map[string]any{"status": db.OrderRefunded, "refunded_at": now})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: concurrent status change", ErrInvalidStateTransition)
	}
	return s.Get(orderID)
}

// Get loads one order with its lines, transactions and codes.
func (s *Service) Get(orderID uint) (*db.Order, error) {
	return s.reload(orderID)
}

// ListForUser returns a user's orders, newest first.
func (s *Service) ListForUser(userID uint) ([]db.Order, error) {
	var orders []db.Order
	err := s.DB.Preload("Items").Preload("ActivationCodes").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

func (s *Service) reload(orderID uint) (*db.Order, error) {
	var order db.Order
	err := s.DB.Preload("Items").Preload("IntlTransactions").Preload("ActivationCodes").
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func orderRef(order *db.Order) string {
	return fmt.Sprintf("ORD-%06d", order.ID)
}
