package admin

import (
	"log"
	"net/http"
	"time"

	"cedra_checkout/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const pingInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// L'origine est filtrée par CORS en amont
		return true
	},
}

// NotificationsWS pousse en temps réel les notifications de l'utilisateur connecté
func (h *Handler) NotificationsWS(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Non authentifié"})
		return
	}

	ctx := c.Request.Context()
	sub, err := h.broadcaster.Subscribe(ctx, userID)
	if err != nil {
		log.Printf("❌ Abonnement notifications %s: %v", userID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Temps réel indisponible"})
		return
	}
	defer sub.Close()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("❌ Erreur upgrade WebSocket: %v", err)
		return
	}
	defer conn.Close()

	// Lecture en tâche de fond : traite les pongs et détecte la fermeture côté client
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(gin.H{"type": "connected", "message": "Notifications temps réel activées"}); err != nil {
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case n, ok := <-sub.C():
			if !ok {
				return
			}
			if err := conn.WriteJSON(gin.H{"type": "notification", "notification": n}); err != nil {
				log.Printf("❌ Erreur envoi WebSocket: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-ctx.Done():
			return
		}
	}
}
