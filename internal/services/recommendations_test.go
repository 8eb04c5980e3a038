package services

import "testing"

func TestRecommend(t *testing.T) {
	got := Recommend([]string{"centrarme", "desconocido", "vivir_saludable", "centrarme"})
	want := []string{"Modo Enfoque", "Caminata Diaria", "Hidratación"}
	if len(got) != len(want) {
		t.Fatalf("expected %d recommendations, got %d: %+v", len(want), len(got), got)
	}
	for i, title := range want {
		if got[i].Titulo != title {
			t.Errorf("position %d: expected %q, got %q", i, title, got[i].Titulo)
		}
	}

	if empty := Recommend(nil); empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", empty)
	}
}
