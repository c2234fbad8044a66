package utils

import (
	"fmt"

	"cedra_checkout/internal/models"
)

// OrderStatusEmail retourne le sujet et le corps du mail de suivi de commande
func OrderStatusEmail(order models.Order, frontendURL string) (string, string) {
	return statusSubject(order.Status), statusHTML(order, frontendURL)
}

func statusSubject(status models.OrderStatus) string {
	switch status {
	case models.OrderShipped:
		return "📦 Votre commande a été expédiée - Cedra"
	case models.OrderDelivered:
		return "🎉 Votre commande a été livrée - Cedra"
	case models.OrderCancelled:
		return "❌ Commande annulée - Cedra"
	default:
		return "📋 Mise à jour de votre commande - Cedra"
	}
}

func statusMessage(status models.OrderStatus) string {
	switch status {
	case models.OrderProcessing:
		return "Votre paiement a été confirmé avec succès. Nous préparons votre commande."
	case models.OrderShipped:
		return "Bonne nouvelle ! Votre commande a été expédiée et est en route vers vous."
	case models.OrderDelivered:
		return "Votre commande a été livrée avec succès. Nous espérons que vous en êtes satisfait !"
	case models.OrderCancelled:
		return "Votre commande a été annulée. Si vous avez des questions, n'hésitez pas à nous contacter."
	default:
		return "Le statut de votre commande a été mis à jour."
	}
}

func statusColor(status models.OrderStatus) string {
	switch status {
	case models.OrderShipped:
		return "#17a2b8"
	case models.OrderDelivered:
		return "#28a745"
	case models.OrderCancelled:
		return "#dc3545"
	default:
		return "#667eea"
	}
}

func statusHTML(order models.Order, frontendURL string) string {
	color := statusColor(order.Status)
	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
    <meta charset="UTF-8">
    <title>Mise à jour de commande</title>
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, Arial, sans-serif; background-color: #f5f5f5;">
    <table role="presentation" style="max-width: 600px; margin: 40px auto; background-color: #ffffff; border-radius: 12px;">
        <tr>
            <td style="padding: 30px; text-align: center;">
                <div style="display: inline-block; padding: 12px 24px; background-color: %s; color: #ffffff; border-radius: 25px; font-weight: 600;">
                    %s
                </div>
            </td>
        </tr>
        <tr>
            <td style="padding: 0 30px 30px 30px;">
                <p style="color: #333333; font-size: 16px; line-height: 1.6;">%s</p>
                <p style="color: #666666; font-size: 14px;">Numéro de commande : <strong>#%s</strong><br>
                Montant total : <strong>%s</strong></p>
                <p style="text-align: center;">
                    <a href="%s/orders" style="display: inline-block; padding: 14px 32px; background-color: #667eea; color: #ffffff; text-decoration: none; border-radius: 6px;">Voir ma commande</a>
                </p>
            </td>
        </tr>
    </table>
</body>
</html>
`, color, order.Status, statusMessage(order.Status), shortID(order.ID), order.Payable.StringFixed(2), frontendURL)
}
