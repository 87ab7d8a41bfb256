package articlerequest

import (
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/SergeyParamoshkin/feeds/internal/attachment"
	"github.com/SergeyParamoshkin/feeds/internal/model"
)

// ArticleRequest is the request payload for creating or editing an
// article. It arrives as a multipart form so images travel with it.
//
// List fields accept both "name" and "name[]" keys, and tags may also be
// sent as one comma separated value.
type ArticleRequest struct {
	Title          string
	Description    string
	Category       model.Category
	Content        string
	Tags           []string
	ExistingImages []string
	Images         []*multipart.FileHeader

	// Create requires the full article; edits may leave fields out.
	Create bool
}

// Parse reads the form of r into an ArticleRequest and binds it.
// Uploads beyond maxMemory are spooled to temporary files.
func Parse(r *http.Request, maxMemory int64, create bool) (*ArticleRequest, error) {
	err := r.ParseMultipartForm(maxMemory)
	if err == http.ErrNotMultipart {
		err = r.ParseForm()
	}
	if err != nil {
		return nil, model.InvalidArgument("malformed form: %v", err)
	}

	a := &ArticleRequest{
		Title:          r.FormValue("title"),
		Description:    r.FormValue("description"),
		Category:       model.Category(strings.TrimSpace(r.FormValue("category"))),
		Content:        r.FormValue("content"),
		ExistingImages: values(r, "existingImages"),
		Create:         create,
	}

	// Absent tags keep the stored ones on edit, an empty value clears them.
	_, plain := r.Form["tags"]
	_, list := r.Form["tags[]"]
	if plain || list {
		a.Tags = values(r, "tags")
	}

	if r.MultipartForm != nil {
		a.Images = append(a.Images, r.MultipartForm.File["images"]...)
		a.Images = append(a.Images, r.MultipartForm.File["images[]"]...)
	}

	if err := a.Bind(r); err != nil {
		return nil, err
	}

	return a, nil
}

func values(r *http.Request, name string) []string {
	out := []string{}
	for _, key := range []string{name, name + "[]"} {
		for _, v := range r.Form[key] {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}

	return out
}

// Bind checks the fields and the uploads before anything is stored.
func (a *ArticleRequest) Bind(r *http.Request) error {
	if a.Create {
		switch {
		case strings.TrimSpace(a.Title) == "",
			strings.TrimSpace(a.Description) == "",
			strings.TrimSpace(a.Content) == "",
			a.Category == "":
			return model.InvalidArgument("title, description, category and content are required")
		}
		if err := model.CheckImageCount(len(a.Images)); err != nil {
			return err
		}
	}

	if a.Category != "" && !a.Category.Valid() {
		return model.InvalidArgument("category must be one of %s", strings.Join(model.CategoryNames(), ", "))
	}

	for _, fh := range a.Images {
		if err := attachment.Validate(fh); err != nil {
			return err
		}
	}

	return nil
}

// InteractRequest is the payload of an article interaction.
type InteractRequest struct {
	Action string `json:"action"`

	Parsed model.Action `json:"-"`
}

func (i *InteractRequest) Bind(r *http.Request) error {
	var err error
	i.Parsed, err = model.ParseAction(strings.TrimSpace(i.Action))

	return err
}
