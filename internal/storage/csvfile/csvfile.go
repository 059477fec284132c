// Package csvfile persists the ledger as a CSV file with a header row.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"budget/internal/core"
	"budget/internal/ledger"
)

// Column names, in write order.
const (
	ColDate        = "Date"
	ColDescription = "Description"
	ColAmount      = "Montant"
	ColCategory    = "Categorie"
	ColAccount     = "Compte"
	ColType        = "Type"
	ColID          = "ID"
)

var header = []string{ColDate, ColDescription, ColAmount, ColCategory, ColAccount, ColType, ColID}

// requiredColumns must be present in any file we read. ID is optional for
// files written before identifiers existed.
var requiredColumns = header[:6]

// File is a ledger.Backend over a single CSV file.
type File struct {
	path string
}

var _ ledger.Backend = (*File)(nil)

func New(path string) *File {
	return &File{path: path}
}

func (f *File) Path() string { return f.path }

// ReadAll parses the file. A missing file is an empty ledger.
func (f *File) ReadAll(ctx context.Context) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &core.StorageUnavailableError{Op: "open " + f.path, Err: err}
	}
	defer fh.Close()

	return Decode(fh, filepath.Base(f.path))
}

// WriteAll replaces the file atomically: temp file in the same directory,
// fsync, then rename over the target.
func (f *File) WriteAll(ctx context.Context, txs []core.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &core.StorageUnavailableError{Op: "mkdir " + dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return &core.StorageUnavailableError{Op: "create temp", Err: err}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := Encode(tmp, txs); err != nil {
		return &core.StorageUnavailableError{Op: "write temp", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &core.StorageUnavailableError{Op: "sync temp", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &core.StorageUnavailableError{Op: "close temp", Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return &core.StorageUnavailableError{Op: "chmod temp", Err: err}
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return &core.StorageUnavailableError{Op: "rename", Err: err}
	}
	committed = true
	return nil
}

// Ping checks that the target directory is reachable.
func (f *File) Ping(ctx context.Context) error {
	dir := filepath.Dir(f.path)
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &core.StorageUnavailableError{Op: "stat " + dir, Err: err}
	}
	if !info.IsDir() {
		return &core.StorageUnavailableError{Op: "stat " + dir, Err: fmt.Errorf("%s is not a directory", dir)}
	}
	return nil
}

// Encode writes txs newest first, with the header row.
func Encode(w io.Writer, txs []core.Transaction) error {
	sorted := slices.Clone(txs)
	core.SortByDateDesc(sorted)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, tx := range sorted {
		rec := []string{
			tx.Date.String(),
			tx.Description,
			tx.Amount.String(),
			tx.Category,
			tx.Account,
			tx.Type,
			strconv.FormatInt(tx.ID, 10),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Decode parses a ledger CSV. Columns are located by header name. Rows
// without an ID get one from their position, after the highest stored ID.
func Decode(r io.Reader, source string) ([]core.Transaction, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, corrupt(source, 1, "", err)
	}
	cols := make(map[string]int, len(head))
	for i, name := range head {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, corrupt(source, 1, name, errors.New("missing column"))
		}
	}
	idCol, hasID := cols[ColID]

	var (
		txs     []core.Transaction
		missing []int
		maxID   int64
	)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, corrupt(source, line, "", err)
		}
		if blank(rec) {
			continue
		}
		field := func(name string) string {
			i := cols[name]
			if i >= len(rec) {
				return ""
			}
			return rec[i]
		}

		date, err := core.ParseDate(field(ColDate))
		if err != nil {
			return nil, corrupt(source, line, ColDate, err)
		}
		amount, err := core.ParseAmount(field(ColAmount))
		if err != nil {
			return nil, corrupt(source, line, ColAmount, err)
		}
		tx := core.Transaction{
			Date:        date,
			Description: field(ColDescription),
			Amount:      amount,
			Category:    strings.TrimSpace(field(ColCategory)),
			Account:     strings.TrimSpace(field(ColAccount)),
			Type:        strings.TrimSpace(field(ColType)),
		}

		raw := ""
		if hasID && idCol < len(rec) {
			raw = strings.TrimSpace(rec[idCol])
		}
		if raw == "" {
			missing = append(missing, len(txs))
		} else {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				return nil, corrupt(source, line, ColID, fmt.Errorf("invalid identifier %q", raw))
			}
			tx.ID = id
			maxID = max(maxID, id)
		}
		txs = append(txs, tx)
	}

	for _, i := range missing {
		maxID++
		txs[i].ID = maxID
	}
	return txs, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func corrupt(source string, line int, field string, err error) error {
	return &core.StorageCorruptError{Source: source, Line: line, Field: field, Err: err}
}
