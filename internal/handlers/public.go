package handlers

import (
	"encoding/json"
	"net/http"

	"healthtrack-api/internal/services"

	"github.com/gin-gonic/gin"
)

func Root(c *gin.Context) {
	c.String(http.StatusOK, "API HealthTrack funcionando")
}

func Health(c *gin.Context) {
	c.Data(http.StatusOK, "application/json", []byte(`{"status":"ok"}`))
}

// Recommendations answers POST /api/habitos-recomendados. A body without an
// objetivos array yields an empty list rather than an error.
func Recommendations(c *gin.Context) {
	var body struct {
		Objetivos json.RawMessage `json:"objetivos"`
	}
	if err := json.NewDecoder(c.Request.Body).Decode(&body); err != nil {
		c.JSON(http.StatusOK, gin.H{"data": []services.Recommendation{}})
		return
	}

	var raw []any
	if len(body.Objetivos) == 0 || json.Unmarshal(body.Objetivos, &raw) != nil || raw == nil {
		c.JSON(http.StatusOK, gin.H{"data": []services.Recommendation{}})
		return
	}
	// Entries that are not strings match no goal and are skipped.
	objetivos := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			objetivos = append(objetivos, s)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Recomendaciones generadas",
		"data":    services.Recommend(objetivos),
	})
}

func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Ruta no encontrada"})
}
