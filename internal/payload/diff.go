// Package payload сравнивает schema-less документы сущностей по полям верхнего уровня.
package payload

import (
	"encoding/json"
	"reflect"
	"sort"

	"github.com/iudanet/labsync/internal/models"
)

// Diff возвращает расхождения между локальной и серверной версией документа.
// Каждое поле верхнего уровня, присутствующее хотя бы в одной версии и не совпадающее
// по значению, дает один FieldConflict. Результат упорядочен по имени поля.
func Diff(local, server map[string]any) []models.FieldConflict {
	keys := make(map[string]struct{}, len(local)+len(server))
	for k := range local {
		keys[k] = struct{}{}
	}
	for k := range server {
		keys[k] = struct{}{}
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	conflicts := make([]models.FieldConflict, 0)
	for _, k := range sorted {
		lv, lok := local[k]
		sv, sok := server[k]
		if lok && sok && Equal(lv, sv) {
			continue
		}
		conflicts = append(conflicts, models.FieldConflict{
			Field:         k,
			LocalValue:    lv,
			ServerValue:   sv,
			LocalPresent:  lok,
			ServerPresent: sok,
		})
	}
	return conflicts
}

// Equal сравнивает два значения после приведения к JSON-представлению,
// так что 1 и 1.0, []string и []any считаются равными.
func Equal(a, b any) bool {
	return reflect.DeepEqual(normalize(a), normalize(b))
}

// IsScalar сообщает, является ли значение скаляром (строка, число, bool, null).
// Объекты и массивы скалярами не считаются.
func IsScalar(v any) bool {
	switch normalize(v).(type) {
	case map[string]any, []any:
		return false
	default:
		return true
	}
}

func normalize(v any) any {
	switch v.(type) {
	case nil, string, bool, float64:
		return v
	}
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
