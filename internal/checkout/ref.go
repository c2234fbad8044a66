package checkout

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewExternalRef produit une référence du type TXN-1718000000000-ab12cd34
func NewExternalRef(prefix string, now time.Time) string {
	if prefix == "" {
		prefix = "TXN"
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), random)
}
