package google

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"budget/internal/core"
)

var header = []string{"Date", "Description", "Montant", "Categorie", "Compte", "Type", "ID"}

// parseRows converts a values matrix into transactions. Columns are located
// by header name; rows without an ID are numbered after the highest one seen.
func parseRows(values [][]any, source string) ([]core.Transaction, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	cols := make(map[string]int, len(header))
	for _, name := range header {
		cols[name] = indexOf(headers, name)
	}
	for _, name := range header[:6] {
		if cols[name] == -1 {
			return nil, &core.StorageCorruptError{Source: source, Line: 1, Field: name, Err: fmt.Errorf("unexpected header: got %v", headers)}
		}
	}

	var (
		txs     []core.Transaction
		missing []int
		maxID   int64
	)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if blank(row) {
			continue
		}
		line := i + 1
		get := func(name string) string { return safeGet(row, cols[name]) }

		date, err := core.ParseDate(get("Date"))
		if err != nil {
			return nil, &core.StorageCorruptError{Source: source, Line: line, Field: "Date", Err: err}
		}
		amount, err := core.ParseAmount(get("Montant"))
		if err != nil {
			return nil, &core.StorageCorruptError{Source: source, Line: line, Field: "Montant", Err: err}
		}
		tx := core.Transaction{
			Date:        date,
			Description: get("Description"),
			Amount:      amount,
			Category:    get("Categorie"),
			Account:     get("Compte"),
			Type:        get("Type"),
		}
		if raw := get("ID"); raw == "" {
			missing = append(missing, len(txs))
		} else {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				return nil, &core.StorageCorruptError{Source: source, Line: line, Field: "ID", Err: errors.New("invalid identifier " + strconv.Quote(raw))}
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

// toRows renders the header plus txs, newest first.
func toRows(txs []core.Transaction) [][]any {
	sorted := slices.Clone(txs)
	core.SortByDateDesc(sorted)

	rows := make([][]any, 0, len(sorted)+1)
	head := make([]any, len(header))
	for i, h := range header {
		head[i] = h
	}
	rows = append(rows, head)
	for _, tx := range sorted {
		rows = append(rows, []any{
			tx.Date.String(),
			tx.Description,
			tx.Amount.Euros(),
			tx.Category,
			tx.Account,
			tx.Type,
			tx.ID,
		})
	}
	return rows
}

// cellString renders a cell as text. Numbers come back from the API as float64.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case string:
		return strings.TrimSpace(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = cellString(v)
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), target) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func blank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
