package feed

import (
	"slices"

	"github.com/realAndi/PWAChat/models"
)

// View, istemcinin elindeki feed penceresi.
//
// Mesajlar artan ID sırasında ve tekrarsız tutulur. Eski sayfalar başa,
// realtime ile gelen yeni mesajlar ID'sine göre doğru konuma eklenir.
// View goroutine-safe değildir; sahibi (Session) kendi mutex'i ile korur.
type View struct {
	msgs []models.Message
}

// NewView, boş bir view oluşturur.
func NewView() *View {
	return &View{}
}

// Messages, mesajların bağımsız bir kopyasını döner.
func (v *View) Messages() []models.Message {
	out := make([]models.Message, len(v.msgs))
	for i, m := range v.msgs {
		out[i] = m.Clone()
	}
	return out
}

// Len, view'daki mesaj sayısı.
func (v *View) Len() int { return len(v.msgs) }

// OldestID, en eski mesajın ID'si; view boşsa 0.
// Bir sonraki LoadOlder için cursor olarak kullanılır.
func (v *View) OldestID() int64 {
	if len(v.msgs) == 0 {
		return 0
	}
	return v.msgs[0].ID
}

// NewestID, en yeni mesajın ID'si; view boşsa 0.
func (v *View) NewestID() int64 {
	if len(v.msgs) == 0 {
		return 0
	}
	return v.msgs[len(v.msgs)-1].ID
}

// Has, id view'da mı?
func (v *View) Has(id int64) bool {
	_, found := v.search(id)
	return found
}

// Reset, view'ı verilen sayfayla değiştirir (ilk yükleme / resync).
func (v *View) Reset(msgs []models.Message) {
	v.msgs = nil
	for _, m := range msgs {
		v.insert(m)
	}
}

// PrependOlder, daha eski bir sayfayı ekler. Zaten olan mesajlar atlanır.
// Eklenen mesaj sayısını döner.
func (v *View) PrependOlder(msgs []models.Message) int {
	added := 0
	for _, m := range msgs {
		if v.insert(m) {
			added++
		}
	}
	return added
}

// ApplyNewMessage, "new-message" event'ini uygular.
// Aynı ID ikinci kez gelirse yok sayılır ve false döner.
func (v *View) ApplyNewMessage(m models.Message) bool {
	return v.insert(m)
}

// ApplyRead, "message-read" event'ini uygular: readerID, view'da bulunan
// her mesajın okuyucu setine eklenir. Tekrar uygulamak etkisizdir.
// Değişen mesaj sayısını döner.
func (v *View) ApplyRead(r models.ReadReceipt) int {
	changed := 0
	for _, id := range r.MessageIDs {
		i, found := v.search(id)
		if !found {
			continue
		}
		if v.msgs[i].ReadBy.Add(r.ReaderID) {
			changed++
		}
	}
	return changed
}

func (v *View) search(id int64) (int, bool) {
	return slices.BinarySearchFunc(v.msgs, id, func(m models.Message, target int64) int {
		switch {
		case m.ID < target:
			return -1
		case m.ID > target:
			return 1
		}
		return 0
	})
}

func (v *View) insert(m models.Message) bool {
	i, found := v.search(m.ID)
	if found {
		return false
	}
	v.msgs = slices.Insert(v.msgs, i, m.Clone())
	return true
}
