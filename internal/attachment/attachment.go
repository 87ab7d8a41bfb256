package attachment

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/SergeyParamoshkin/feeds/internal/logger"
	"github.com/SergeyParamoshkin/feeds/internal/model"
	"github.com/SergeyParamoshkin/feeds/internal/telemetry"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// allowed maps accepted extensions to the content type their bytes must
// sniff as.
var allowed = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// Validate rejects uploads outside the image allow-list.
func Validate(fh *multipart.FileHeader) error {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	want, ok := allowed[ext]
	if !ok {
		return model.InvalidArgument("file %q is not an allowed image type (jpeg, jpg, png, gif)", fh.Filename)
	}

	f, err := fh.Open()
	if err != nil {
		return errors.Wrapf(err, "opening upload %s", fh.Filename)
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return errors.Wrapf(err, "reading upload %s", fh.Filename)
	}

	if got := http.DetectContentType(head[:n]); got != want {
		return model.InvalidArgument("file %q is not a valid %s image", fh.Filename, strings.TrimPrefix(ext, "."))
	}

	return nil
}

// Manager stores article images on disk and removes the ones articles no
// longer reference. Stored images are referenced as "<prefix>/<name>".
type Manager struct {
	dir         string
	prefix      string
	instruments *telemetry.Instruments
	now         func() time.Time
}

func NewManager(dir, prefix string, instruments *telemetry.Instruments) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating uploads directory %s", dir)
	}

	return &Manager{
		dir:         dir,
		prefix:      strings.Trim(prefix, "/"),
		instruments: instruments,
		now:         time.Now,
	}, nil
}

// Dir is the directory holding the stored files.
func (m *Manager) Dir() string {
	return m.dir
}

// Save writes the uploads under unique names and returns their references
// in the given order. Nothing is left behind when any of them fails.
func (m *Manager) Save(ctx context.Context, files []*multipart.FileHeader) ([]string, error) {
	refs := make([]string, 0, len(files))

	for _, fh := range files {
		ref, err := m.save(fh)
		if err != nil {
			m.Remove(ctx, refs)

			return nil, err
		}
		refs = append(refs, ref)
	}

	return refs, nil
}

func (m *Manager) save(fh *multipart.FileHeader) (string, error) {
	if err := Validate(fh); err != nil {
		return "", err
	}

	src, err := fh.Open()
	if err != nil {
		return "", errors.Wrapf(err, "opening upload %s", fh.Filename)
	}
	defer src.Close()

	name := fmt.Sprintf("%d-%s%s", m.now().UnixMilli(), uuid.NewString(), strings.ToLower(filepath.Ext(fh.Filename)))

	dst, err := os.OpenFile(filepath.Join(m.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", errors.Wrapf(err, "creating %s", name)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())

		return "", errors.Wrapf(err, "writing %s", name)
	}

	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())

		return "", errors.Wrapf(err, "closing %s", name)
	}

	return path.Join(m.prefix, name), nil
}

// Remove deletes the referenced files. It is best-effort: files that are
// already gone are ignored, other failures are logged and counted.
func (m *Manager) Remove(ctx context.Context, refs []string) {
	log := logger.FromContext(ctx)

	for _, ref := range refs {
		p, ok := m.path(ref)
		if !ok {
			log.Warnw("ignoring attachment outside the uploads directory", "ref", ref)
			continue
		}

		err := os.Remove(p)
		switch {
		case err == nil:
			m.instruments.AttachmentDeleted(ctx)
		case os.IsNotExist(err):
		default:
			m.instruments.AttachmentDeleteFailed(ctx)
			log.Errorw("removing attachment", "ref", ref, "error", err)
		}
	}
}

// path resolves a reference to a file in the uploads directory.
func (m *Manager) path(ref string) (string, bool) {
	name := strings.TrimPrefix(ref, m.prefix+"/")
	if name == ref && m.prefix != "" {
		return "", false
	}
	if name == "" || name != filepath.Base(name) || name == ".." {
		return "", false
	}

	return filepath.Join(m.dir, name), true
}
