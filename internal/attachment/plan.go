package attachment

import "github.com/SergeyParamoshkin/feeds/internal/model"

// Update is the reconciliation of an article's images across an edit.
type Update struct {
	// Retained are the current images the editor kept, in their order.
	Retained []string
	// Removed are the current images to delete once the edit is stored.
	Removed []string
}

// PlanUpdate keeps the current images listed in existing and schedules the
// rest for removal. References in existing that the article does not own
// are ignored. The edit is rejected when, together with the new uploads,
// fewer than model.MinImages would remain.
func PlanUpdate(current, existing []string, uploads int) (Update, error) {
	keep := make(map[string]struct{}, len(existing))
	for _, ref := range existing {
		keep[ref] = struct{}{}
	}

	u := Update{Retained: []string{}, Removed: []string{}}
	for _, ref := range current {
		if _, ok := keep[ref]; ok {
			u.Retained = append(u.Retained, ref)
		} else {
			u.Removed = append(u.Removed, ref)
		}
	}

	if err := model.CheckImageCount(len(u.Retained) + uploads); err != nil {
		return Update{}, err
	}

	return u, nil
}

// Images is the article's image list once the uploads were saved.
func (u Update) Images(saved []string) []string {
	images := make([]string, 0, len(u.Retained)+len(saved))
	images = append(images, u.Retained...)

	return append(images, saved...)
}
