package email

import (
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"hitechstore/utils"
	"hitechstore/web/db"
)

func SendEmail(to string, subject string, body string) error {
	smtpServer := os.Getenv("SMTP_SERVER")
	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	fromAddr := os.Getenv("FROM_ADDR")
	fromName := os.Getenv("FROM_NAME")

	if smtpServer == "" || smtpPort == "" || smtpUser == "" || smtpPass == "" || fromAddr == "" {
		return fmt.Errorf("missing SMTP environment variables")
	}
	if fromName == "" {
		fromName = "HiTech Store"
	}

	msg := []byte(fmt.Sprintf("From: %s <%s>\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n\r\n"+
		"%s",
		fromName, fromAddr, to, subject, body))

	auth := smtp.PlainAuth("", smtpUser, smtpPass, smtpServer)

	if err := smtp.SendMail(smtpServer+":"+smtpPort, auth, fromAddr, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

func SendVerificationEmail(to string, token string) error {
	subject := "Vérification de votre compte HiTech Store"
	link := fmt.Sprintf("%s/verify-email/%s", utils.FrontendURL(), token)
	body := fmt.Sprintf("Bienvenue sur HiTech Store !\n\n"+
		"Pour activer votre compte, ouvrez le lien ci-dessous :\n\n%s\n\n"+
		"Ce lien expirera dans 24 heures.\n\n"+
		"Si vous n'avez pas créé de compte, ignorez cet email.", link)
	return SendEmail(to, subject, body)
}

func SendResetPasswordEmail(to string, token string) error {
	subject := "Réinitialisation de votre mot de passe HiTech Store"
	link := fmt.Sprintf("%s/reset-password/%s", utils.FrontendURL(), token)
	body := fmt.Sprintf("Vous avez demandé la réinitialisation de votre mot de passe.\n\n"+
		"Ouvrez le lien ci-dessous pour en choisir un nouveau :\n\n%s\n\n"+
		"Ce lien expirera dans 1 heure.\n\n"+
		"Si vous n'êtes pas à l'origine de cette demande, ignorez cet email.", link)
	return SendEmail(to, subject, body)
}

func SendOrderConfirmationEmail(to string, order *db.Order) error {
	subject := "Confirmation de votre commande HiTech Store"

	var b strings.Builder
	fmt.Fprintf(&b, "Merci pour votre commande !\n\n")
	fmt.Fprintf(&b, "Commande ORD-%06d\n\n", order.ID)
	fmt.Fprintf(&b, "Sous-total: %.2f TND\n", order.Subtotal)
	fmt.Fprintf(&b, "Commission (15%%): %.2f TND\n", order.Commission)
	fmt.Fprintf(&b, "Total: %.2f TND\n", order.Total)

	if len(order.ActivationCodes) > 0 {
		fmt.Fprintf(&b, "\nVos codes d'activation :\n")
		for _, code := range order.ActivationCodes {
			fmt.Fprintf(&b, "  %s: %s\n", code.Service, code.Code)
		}
	}
	fmt.Fprintf(&b, "\nVous pouvez suivre votre commande depuis votre compte.\n")

	return SendEmail(to, subject, b.String())
}
