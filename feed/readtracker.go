package feed

import "slices"

// ReadTracker, izleyicinin okumadığı ve henüz bildirilmemiş mesajları takip eder.
//
// Her view değişikliğinde Pending çağrılır; dönen ID'ler gönderildikten sonra
// MarkSubmitted ile işaretlenir. Gönderim başarısız olursa Forget ile
// bir sonraki turda tekrar denenir.
type ReadTracker struct {
	viewerID  string
	submitted map[int64]struct{}
}

// NewReadTracker, viewerID için bir tracker oluşturur.
func NewReadTracker(viewerID string) *ReadTracker {
	return &ReadTracker{
		viewerID:  viewerID,
		submitted: make(map[int64]struct{}),
	}
}

// Pending, view'da izleyicinin okuyucu setinde olmayan ve daha önce
// gönderilmemiş mesaj ID'lerini artan sırada döner.
func (t *ReadTracker) Pending(v *View) []int64 {
	var ids []int64
	for _, m := range v.msgs {
		if m.ReadBy.Has(t.viewerID) {
			continue
		}
		if _, ok := t.submitted[m.ID]; ok {
			continue
		}
		ids = append(ids, m.ID)
	}
	return ids
}

// MarkSubmitted, id'leri gönderilmiş olarak işaretler.
func (t *ReadTracker) MarkSubmitted(ids []int64) {
	for _, id := range ids {
		t.submitted[id] = struct{}{}
	}
}

// Forget, gönderimi başarısız olan id'leri tekrar bekleyen hale getirir.
func (t *ReadTracker) Forget(ids []int64) {
	for _, id := range ids {
		delete(t.submitted, id)
	}
}

// Submitted, gönderilmiş id'leri artan sırada döner.
func (t *ReadTracker) Submitted() []int64 {
	ids := make([]int64, 0, len(t.submitted))
	for id := range t.submitted {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
