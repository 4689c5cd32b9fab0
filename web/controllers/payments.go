package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"hitechstore/payment/flouci"
	"hitechstore/payment/order"
	"hitechstore/payment/qrcode"
	"hitechstore/web/db"

	"github.com/gin-gonic/gin"
)

type Payments struct {
	Orders  *order.Service
	Gateway *flouci.Client
}

// Initiate creates a pending order from the cart and opens a hosted payment
// session, returning the redirect URL.
func (p *Payments) Initiate(c *gin.Context) {
	user := c.MustGet("user").(db.User)

	var body struct {
		Items []order.LineItemRequest `json:"items" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Panier invalide"})
		return
	}

	ord, err := p.Orders.CreateOrder(&user, body.Items)
	if err != nil {
		if errors.Is(err, order.ErrInvalidLineItem) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Un ou plusieurs produits sont indisponibles"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur lors de la création de la commande"})
		return
	}

	session, err := p.Orders.InitiatePayment(ord)
	if err != nil {
		switch {
		case errors.Is(err, order.ErrDuplicatePaymentSession):
			c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Une session de paiement existe déjà pour cette commande"})
		case errors.Is(err, order.ErrPaymentInitiationFailed):
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Erreur lors de l'initiation du paiement"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur lors de l'initiation du paiement"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"paymentUrl": session.PaymentURL,
		"orderId":    ord.ID,
	})
}

// Verify polls the gateway for the order's payment status and fulfills on
// completion. Only the order's owner (or an admin) may poll it.
func (p *Payments) Verify(c *gin.Context) {
	user := c.MustGet("user").(db.User)

	orderID, err := strconv.ParseUint(c.Param("orderId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Identifiant de commande invalide"})
		return
	}

	ord, err := p.Orders.Get(uint(orderID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Commande non trouvée"})
		return
	}
	if ord.UserID != user.ID && user.Role != db.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Accès refusé"})
		return
	}

	ord, status, err := p.Orders.VerifyAndFulfill(uint(orderID))
	if err != nil {
		if errors.Is(err, order.ErrUnsupportedProvider) {
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Fournisseur non supporté", "order": orderSummary(ord)})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Erreur lors de la vérification du paiement"})
		return
	}

	// success reflects the order's own state: a COMPLETED gateway status does
	// not imply completion when fulfillment already ran or previously failed.
	if ord.Status == db.OrderCompleted || ord.Status == db.OrderRefunded {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Paiement complété avec succès", "order": orderSummary(ord)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": false, "message": "Paiement en attente ou échoué", "status": status, "orderStatus": ord.Status})
}

// Webhook receives gateway notifications. Unauthenticated, but the payload
// carries a keyed-hash signature over payment_id|status.
func (p *Payments) Webhook(c *gin.Context) {
	var body struct {
		PaymentID string `json:"payment_id" binding:"required"`
		Status    string `json:"status" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid payload"})
		return
	}

	if !p.Gateway.VerifySignature(body.PaymentID, body.Status, body.Signature) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid signature"})
		return
	}

	_, err := p.Orders.HandleWebhook(body.PaymentID, body.Status)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Order not found"})
			return
		}
		if errors.Is(err, order.ErrUnsupportedProvider) {
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Fulfillment failed"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Error processing webhook"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Refund is admin-only and only moves completed orders to refunded.
func (p *Payments) Refund(c *gin.Context) {
	orderID, err := strconv.ParseUint(c.Param("orderId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Identifiant de commande invalide"})
		return
	}

	ord, err := p.Orders.RefundOrder(uint(orderID))
	if err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Commande non trouvée"})
		case errors.Is(err, order.ErrInvalidStateTransition):
			c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Seules les commandes complétées peuvent être remboursées"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur lors du remboursement"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Commande remboursée", "order": orderSummary(ord)})
}

// ListOrders returns the authenticated user's orders.
func (p *Payments) ListOrders(c *gin.Context) {
	user := c.MustGet("user").(db.User)

	orders, err := p.Orders.ListForUser(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur lors de la récupération des commandes"})
		return
	}

	out := make([]gin.H, 0, len(orders))
	for i := range orders {
		out = append(out, orderSummary(&orders[i]))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "orders": out})
}

// QR renders the order's hosted payment URL as a PNG QR code.
func (p *Payments) QR(c *gin.Context) {
	user := c.MustGet("user").(db.User)

	orderID, err := strconv.ParseUint(c.Param("orderId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Identifiant de commande invalide"})
		return
	}

	ord, err := p.Orders.Get(uint(orderID))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Commande non trouvée"})
		return
	}
	if ord.UserID != user.ID && user.Role != db.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Accès refusé"})
		return
	}
	if ord.PaymentID == nil {
		c.JSON(http.StatusConflict, gin.H{"success": false, "message": "Aucune session de paiement pour cette commande"})
		return
	}

	png, err := qrcode.PaymentPNG(p.Gateway.BaseURL + "/pay/" + *ord.PaymentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur lors de la génération du QR code"})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func orderSummary(ord *db.Order) gin.H {
	if ord == nil {
		return nil
	}

	items := make([]gin.H, 0, len(ord.Items))
	for _, item := range ord.Items {
		items = append(items, gin.H{
			"product": item.ProductID,
			"price":   item.Price,
			"internationalPrice": gin.H{
				"amount":   item.IntlAmount,
				"currency": item.IntlCurrency,
			},
		})
	}

	codes := make([]gin.H, 0, len(ord.ActivationCodes))
	for _, code := range ord.ActivationCodes {
		codes = append(codes, gin.H{
			"service":   code.Service,
			"code":      code.Code,
			"status":    code.Status,
			"expiresAt": code.ExpiresAt,
		})
	}

	return gin.H{
		"id":              ord.ID,
		"reference":       orderReference(ord),
		"items":           items,
		"subtotal":        ord.Subtotal,
		"commission":      ord.Commission,
		"total":           ord.Total,
		"status":          ord.Status,
		"completedAt":     ord.CompletedAt,
		"refundedAt":      ord.RefundedAt,
		"activationCodes": codes,
		"createdAt":       ord.CreatedAt,
	}
}

func orderReference(ord *db.Order) string {
	return "ORD-" + strconv.FormatUint(uint64(ord.ID), 10)
}
