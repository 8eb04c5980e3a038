package services

// Recommendation is a suggested habit shown to the user.
type Recommendation struct {
	Titulo      string `json:"titulo"`
	Descripcion string `json:"descripcion"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
}

// recommendationsByGoal maps a profile objective tag to its suggestions.
var recommendationsByGoal = map[string][]Recommendation{
	"dormir_mejor": {
		{Titulo: "A la cama temprano", Descripcion: "Intenta estar en la cama a tu hora objetivo. La consistencia es clave.", Icon: "bi-moon-stars", Color: "text-primary"},
		{Titulo: "Desconexión Digital", Descripcion: "Deja las pantallas 1 hora antes de dormir para mejorar la melatonina.", Icon: "bi-phone-vibrate", Color: "text-dark"},
	},
	"vivir_saludable": {
		{Titulo: "Caminata Diaria", Descripcion: "Camina al menos 30 minutos al día para activar tu sistema cardiovascular.", Icon: "bi-person-walking", Color: "text-success"},
		{Titulo: "Hidratación", Descripcion: "Bebe un vaso de agua antes de cada comida.", Icon: "bi-droplet", Color: "text-info"},
	},
	"aliviar_presion": {
		{Titulo: "Respiración Profunda", Descripcion: "Tómate 5 minutos para respirar profundamente cuando sientas tensión.", Icon: "bi-wind", Color: "text-info"},
		{Titulo: "Pausa Activa", Descripcion: "Levántate y estírate cada 2 horas de trabajo.", Icon: "bi-alarm", Color: "text-danger"},
	},
	"mejor_relacion": {
		{Titulo: "Tiempo de Calidad", Descripcion: "Dedica 30 minutos sin distracciones a hablar con un ser querido.", Icon: "bi-heart", Color: "text-danger"},
	},
	"centrarme": {
		{Titulo: "Modo Enfoque", Descripcion: "Usa la técnica Pomodoro: 25 min de trabajo, 5 de descanso.", Icon: "bi-bullseye", Color: "text-primary"},
	},
	"probar_cosas": {
		{Titulo: "Aprende algo nuevo", Descripcion: "Lee 10 páginas de un libro sobre un tema desconocido para ti.", Icon: "bi-book", Color: "text-warning"},
	},
}

// Recommend returns the suggestions for the given objectives in request
// order, skipping unknown tags and repeated titles.
func Recommend(objetivos []string) []Recommendation {
	out := []Recommendation{}
	seen := make(map[string]bool)
	for _, obj := range objetivos {
		for _, r := range recommendationsByGoal[obj] {
			if seen[r.Titulo] {
				continue
			}
			seen[r.Titulo] = true
			out = append(out, r)
		}
	}
	return out
}
