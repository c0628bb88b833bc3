// Package sheetssql reads spreadsheet tabs as tables. The first row of a tab holds the
// column headers and struct fields opt in to a column with an ssql_header tag.
package sheetssql

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ValueGetter reads the cells of a range, e.g. a whole tab by its title
type ValueGetter interface {
	GetValues(ctx context.Context, spreadsheetID, sheetRange string) ([][]interface{}, error)
}

// GetTableAs retrieves all rows from a tab and maps them to structs of type T
func GetTableAs[T any](ctx context.Context, client ValueGetter, spreadsheetID, tab string) ([]T, error) {
	values, err := client.GetValues(ctx, spreadsheetID, tab)
	if err != nil {
		return nil, fmt.Errorf("failed to get table %s: %w", tab, err)
	}

	rows, err := DecodeRows[T](values)
	if err != nil {
		return nil, fmt.Errorf("failed to decode table %s: %w", tab, err)
	}
	return rows, nil
}

// DecodeRows maps values, header row first, to structs of type T. Headers match tags
// ignoring case and surrounding space. Rows with no non-blank cell are skipped.
func DecodeRows[T any](values [][]interface{}) ([]T, error) {
	var model T
	t := reflect.TypeOf(model)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("target type must be a struct, got %v", t)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("table has no header row")
	}

	// Build mapping of struct fields by normalized column name
	fieldMap := make(map[string]int)
	for i := 0; i < t.NumField(); i++ {
		columnName := t.Field(i).Tag.Get("ssql_header")
		if columnName != "" {
			fieldMap[normalizeHeader(columnName)] = i
		}
	}

	// Column index to field index, for the columns that map to a field
	columns := make(map[int]int)
	for colIdx, header := range values[0] {
		if fieldIdx, ok := fieldMap[normalizeHeader(cellString(header))]; ok {
			columns[colIdx] = fieldIdx
		}
	}

	results := make([]T, 0, len(values)-1)
	for rowIdx, row := range values[1:] {
		if isBlankRow(row) {
			continue
		}

		result := reflect.New(t).Elem()
		for colIdx, fieldIdx := range columns {
			if colIdx >= len(row) || row[colIdx] == nil {
				continue
			}

			if err := setFieldValue(result.Field(fieldIdx), cellString(row[colIdx])); err != nil {
				// +2: one for the header row, one for 1-based sheet rows
				return nil, fmt.Errorf("row %d, column %s: %w", rowIdx+2, cellString(values[0][colIdx]), err)
			}
		}

		results = append(results, result.Interface().(T))
	}

	return results, nil
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// cellString renders a cell; the Sheets API returns formatted values as strings
// but numbers and booleans come through as-is from unformatted reads
func cellString(cell interface{}) string {
	if s, ok := cell.(string); ok {
		return s
	}
	if cell == nil {
		return ""
	}
	return fmt.Sprint(cell)
}

func isBlankRow(row []interface{}) bool {
	for _, cell := range row {
		if strings.TrimSpace(cellString(cell)) != "" {
			return false
		}
	}
	return true
}

// setFieldValue converts a sheet cell value to the appropriate Go type and sets it on the field
func setFieldValue(field reflect.Value, cellStr string) error {
	if !field.CanSet() {
		return fmt.Errorf("field cannot be set")
	}

	cellStr = strings.TrimSpace(cellStr)

	switch field.Kind() {
	case reflect.String:
		field.SetString(cellStr)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if cellStr == "" {
			field.SetInt(0)
		} else {
			intVal, err := strconv.ParseInt(cellStr, 10, 64)
			if err != nil {
				return fmt.Errorf("failed to parse int: %w", err)
			}
			field.SetInt(intVal)
		}

	case reflect.Float32, reflect.Float64:
		if cellStr == "" {
			field.SetFloat(0)
		} else {
			floatVal, err := strconv.ParseFloat(cellStr, 64)
			if err != nil {
				return fmt.Errorf("failed to parse float: %w", err)
			}
			field.SetFloat(floatVal)
		}

	case reflect.Bool:
		if cellStr == "" {
			field.SetBool(false)
		} else {
			boolVal, err := strconv.ParseBool(cellStr)
			if err != nil {
				return fmt.Errorf("failed to parse bool: %w", err)
			}
			field.SetBool(boolVal)
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}
