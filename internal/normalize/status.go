package normalize

import (
	"strings"

	"github.com/gabriel/source-connectors/internal/models"
	"golang.org/x/text/cases"
)

type statusEntry struct {
	status models.Status
	words  []string
}

// StatusTable maps upstream status labels onto models.Status. Lookup tries an
// exact folded match first and then a contains match in table order. Anything
// unmatched is StatusUnknown.
type StatusTable struct {
	entries []statusEntry
}

var defaultStatusWords = []statusEntry{
	{models.StatusPublishingFinished, []string{"publishing finished", "publication finished"}},
	{models.StatusCompleted, []string{
		"completed", "completo", "completado", "concluído", "concluido", "finalizado",
		"achevé", "terminé", "hoàn thành", "مكتملة", "مكتمل", "已完结", "tamamlandı", "finished", "завершено", "завершён",
	}},
	{models.StatusHiatus, []string{"on hold", "hiatus", "pausado", "en espera", "durduruldu", "paused", "en pausa"}},
	{models.StatusCancelled, []string{"canceled", "cancelled", "cancelado", "İptal Edildi", "iptal edildi", "dropped", "discontinued", "abandonné"}},
	{models.StatusOngoing, []string{
		"ongoing", "on going", "продолжается", "updating", "em lançamento", "em andamento", "en cours",
		"en cours de publication", "ativo", "lançando", "đang tiến hành", "devam ediyor", "devam ediyo", "in corso",
		"in arrivo", "مستمرة", "مستمر", "en curso", "emision", "emisión", "en marcha", "publicandose", "publicándose",
		"en emision", "连载中", "releasing", "publishing", "curso",
	}},
}

// DefaultStatusTable covers the labels seen across common site themes in several
// languages.
func DefaultStatusTable() StatusTable {
	return NewStatusTable(entriesToMap(defaultStatusWords))
}

// NewStatusTable builds a table from explicit words. Contains matching checks
// finished, completed, hiatus, cancelled and then ongoing labels.
func NewStatusTable(words map[models.Status][]string) StatusTable {
	return StatusTable{}.With(words, defaultOrder())
}

// With returns a copy whose entries for the given statuses are extended by
// words, which take precedence over existing ones. Statuses are visited in order.
func (t StatusTable) With(words map[models.Status][]string, order []models.Status) StatusTable {
	entries := make([]statusEntry, 0, len(t.entries)+len(words))
	index := map[models.Status]int{}
	for _, entry := range t.entries {
		index[entry.status] = len(entries)
		entries = append(entries, statusEntry{status: entry.status, words: append([]string(nil), entry.words...)})
	}

	caser := cases.Fold()
	for _, status := range order {
		list, ok := words[status]
		if !ok {
			continue
		}
		folded := make([]string, 0, len(list))
		for _, word := range list {
			if word = strings.TrimSpace(caser.String(word)); word != "" {
				folded = append(folded, word)
			}
		}
		if i, exists := index[status]; exists {
			entries[i].words = append(folded, entries[i].words...)
			continue
		}
		index[status] = len(entries)
		entries = append(entries, statusEntry{status: status, words: folded})
	}
	return StatusTable{entries: entries}
}

// Status never fails; unknown labels map to StatusUnknown.
func (t StatusTable) Status(raw string) models.Status {
	folded := strings.Join(strings.Fields(cases.Fold().String(raw)), " ")
	if folded == "" {
		return models.StatusUnknown
	}
	for _, entry := range t.entries {
		for _, word := range entry.words {
			if folded == word {
				return entry.status
			}
		}
	}
	for _, entry := range t.entries {
		for _, word := range entry.words {
			if strings.Contains(folded, word) {
				return entry.status
			}
		}
	}
	return models.StatusUnknown
}

func defaultOrder() []models.Status {
	return []models.Status{
		models.StatusPublishingFinished,
		models.StatusCompleted,
		models.StatusHiatus,
		models.StatusCancelled,
		models.StatusOngoing,
	}
}

func entriesToMap(entries []statusEntry) map[models.Status][]string {
	out := make(map[models.Status][]string, len(entries))
	for _, entry := range entries {
		out[entry.status] = entry.words
	}
	return out
}
