package aggregate

import "github.com/PolandExportFlow/polandexportflow-git-sub001/pkg/models"

// Store values are shared between the committed and pending copies, so every
// helper here returns a fresh slice instead of writing into its argument.

func appendCopy[T any](s []T, values ...T) []T {
	out := make([]T, 0, len(s)+len(values))
	out = append(out, s...)
	return append(out, values...)
}

func without[T any](s []T, drop func(T) bool) []T {
	out := make([]T, 0, len(s))
	for _, v := range s {
		if !drop(v) {
			out = append(out, v)
		}
	}
	return out
}

// upsert replaces the records of s that share an id with one of values and
// appends the rest, so a record a fetch already brought in is not repeated.
func upsert[T any](s []T, id func(T) string, values ...T) []T {
	index := make(map[string]int, len(values))
	for i, v := range values {
		index[id(v)] = i
	}
	used := make([]bool, len(values))
	out := make([]T, 0, len(s)+len(values))
	for _, v := range s {
		if i, ok := index[id(v)]; ok {
			out = append(out, values[i])
			used[i] = true
			continue
		}
		out = append(out, v)
	}
	for i, v := range values {
		if !used[i] {
			out = append(out, v)
		}
	}
	return out
}

func attachmentKey(a models.Attachment) string { return a.ID }
func itemKey(it models.Item) string { return it.ID }
func imageKey(img models.Image) string { return img.ID }
func transactionKey(tx models.Transaction) string { return tx.ID }

func mapItem(items []models.Item, itemID string, fn func(models.Item) models.Item) []models.Item {
	out := make([]models.Item, len(items))
	for i, it := range items {
		if it.ID == itemID {
			it = fn(it)
		}
		out[i] = it
	}
	return out
}

func idSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func uploadSize(f models.FileUpload) int64 {
	if f.Size > 0 {
		return f.Size
	}
	return int64(len(f.Content))
}
