package memory

import (
	"github.com/IT-Nick/testpoint/internal/domain/model"
)

// data снимок всего содержимого хранилища
type data struct {
	Tests     map[string]model.Test        `json:"tests"`
	Questions map[string]model.Question    `json:"questions"`
	Sessions  map[string]model.TestSession `json:"sessions"`
	Groups    map[string]model.Group       `json:"groups"`
	// Order порядковый номер вставки вопроса
	Order   map[string]int64 `json:"order"`
	NextSeq int64            `json:"next_seq"`
	// Versions версии тестов для файла. В API версия скрыта, поэтому хранится отдельно.
	Versions map[string]int64 `json:"versions"`

	// revs счетчик изменений по тесту, включая его вопросы и сессии
	revs map[string]uint64
}

func newData() *data {
	return &data{
		Tests:     make(map[string]model.Test),
		Questions: make(map[string]model.Question),
		Sessions:  make(map[string]model.TestSession),
		Groups:    make(map[string]model.Group),
		Order:     make(map[string]int64),
		revs:      make(map[string]uint64),
	}
}

// normalize заполняет отсутствующие после загрузки из файла карты
func (d *data) normalize() {
	if d.Tests == nil {
		d.Tests = make(map[string]model.Test)
	}
	if d.Questions == nil {
		d.Questions = make(map[string]model.Question)
	}
	if d.Sessions == nil {
		d.Sessions = make(map[string]model.TestSession)
	}
	if d.Groups == nil {
		d.Groups = make(map[string]model.Group)
	}
	if d.Order == nil {
		d.Order = make(map[string]int64)
	}
	if d.revs == nil {
		d.revs = make(map[string]uint64)
	}
	for id, v := range d.Versions {
		if t, ok := d.Tests[id]; ok {
			t.Version = v
			d.Tests[id] = t
		}
	}
}

// collectVersions переносит версии тестов в сохраняемую карту
func (d *data) collectVersions() {
	d.Versions = make(map[string]int64, len(d.Tests))
	for id, t := range d.Tests {
		d.Versions[id] = t.Version
	}
}

func (d *data) clone() *data {
	c := &data{
		Tests:     make(map[string]model.Test, len(d.Tests)),
		Questions: make(map[string]model.Question, len(d.Questions)),
		Sessions:  make(map[string]model.TestSession, len(d.Sessions)),
		Groups:    make(map[string]model.Group, len(d.Groups)),
		Order:     make(map[string]int64, len(d.Order)),
		NextSeq:   d.NextSeq,
		revs:      make(map[string]uint64, len(d.revs)),
	}
	for k, v := range d.Tests {
		c.Tests[k] = v.Clone()
	}
	for k, v := range d.Questions {
		c.Questions[k] = v.Clone()
	}
	for k, v := range d.Sessions {
		c.Sessions[k] = v.Clone()
	}
	for k, v := range d.Groups {
		c.Groups[k] = v
	}
	for k, v := range d.Order {
		c.Order[k] = v
	}
	for k, v := range d.revs {
		c.revs[k] = v
	}
	return c
}

func (d *data) bump(testID string) {
	d.revs[testID]++
}
