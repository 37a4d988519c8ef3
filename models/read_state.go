package models

import (
	"encoding/json"
	"slices"
)

// ReadBySet, bir mesajı okumuş katılımcı ID'lerinin sıralı kümesi.
//
// Sıralı, tekrarsız bir slice olarak tutulur; böylece JSON çıktısı
// deterministiktir ve alt küme kontrolü tek geçişte yapılır.
// Zero value boş kümedir ve kullanılabilir.
type ReadBySet struct {
	ids []string
}

// NewReadBySet, verilen id'lerden (tekrarlar atılarak) bir küme oluşturur.
func NewReadBySet(ids ...string) ReadBySet {
	var s ReadBySet
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add, id'yi kümeye ekler. Küme büyüdüyse true döner.
func (s *ReadBySet) Add(id string) bool {
	i, found := slices.BinarySearch(s.ids, id)
	if found {
		return false
	}
	s.ids = slices.Insert(s.ids, i, id)
	return true
}

// Has, id kümede mi?
func (s ReadBySet) Has(id string) bool {
	_, found := slices.BinarySearch(s.ids, id)
	return found
}

// Len, küme boyutu.
func (s ReadBySet) Len() int { return len(s.ids) }

// Slice, sıralı id listesinin bir kopyasını döner.
func (s ReadBySet) Slice() []string { return slices.Clone(s.ids) }

// Clone, bağımsız bir kopya döner.
func (s ReadBySet) Clone() ReadBySet { return ReadBySet{ids: slices.Clone(s.ids)} }

// Union, other'daki tüm id'leri ekler. Küme değiştiyse true döner.
func (s *ReadBySet) Union(other ReadBySet) bool {
	changed := false
	for _, id := range other.ids {
		if s.Add(id) {
			changed = true
		}
	}
	return changed
}

// StrictSubsetOf, s ⊂ other (other, s'nin tüm elemanlarını ve en az bir fazlasını içerir).
func (s ReadBySet) StrictSubsetOf(other ReadBySet) bool {
	if len(s.ids) >= len(other.ids) {
		return false
	}
	for _, id := range s.ids {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

// MarshalJSON, kümeyi sıralı bir JSON dizisi olarak yazar. Boş küme "[]" olur.
func (s ReadBySet) MarshalJSON() ([]byte, error) {
	if s.ids == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.ids)
}

// UnmarshalJSON, diziyi okur; tekrarları atar ve sıralar.
func (s *ReadBySet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewReadBySet(ids...)
	return nil
}

// ReadReceipt, "message-read" event'inin payload'ı.
// Tek bir markRead çağrısının sonucunu taşır.
type ReadReceipt struct {
	MessageIDs []int64 `json:"message_ids"`
	ReaderID   string  `json:"reader_id"`
}
