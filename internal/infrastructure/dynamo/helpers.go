package dynamo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// updateExpr is a DynamoDB update expression with its placeholder maps.
type updateExpr struct {
	Expr   string
	Names  map[string]string
	Values map[string]types.AttributeValue
}

// buildUpdateExpr converts field->value sets and a list of removed fields into
// one "SET ... REMOVE ..." expression. Keys are sorted so the output is deterministic.
func buildUpdateExpr(sets map[string]interface{}, removes ...string) (updateExpr, error) {
	ue := updateExpr{
		Names:  make(map[string]string),
		Values: make(map[string]types.AttributeValue),
	}
	if len(sets) == 0 && len(removes) == 0 {
		return ue, fmt.Errorf("no fields to update")
	}
	keys := make([]string, 0, len(sets))
	for k := range sets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	if len(keys) > 0 {
		assigns := make([]string, 0, len(keys))
		for i, k := range keys {
			nameKey := fmt.Sprintf("#f%d", i)
			valueKey := fmt.Sprintf(":v%d", i)
			av, err := attributevalue.Marshal(sets[k])
			if err != nil {
				return ue, fmt.Errorf("marshal field %s: %w", k, err)
			}
			ue.Names[nameKey] = k
			ue.Values[valueKey] = av
			assigns = append(assigns, fmt.Sprintf("%s = %s", nameKey, valueKey))
		}
		parts = append(parts, "SET "+strings.Join(assigns, ", "))
	}
	if len(removes) > 0 {
		sorted := append([]string(nil), removes...)
		sort.Strings(sorted)
		names := make([]string, 0, len(sorted))
		for i, k := range sorted {
			nameKey := fmt.Sprintf("#r%d", i)
			ue.Names[nameKey] = k
			names = append(names, nameKey)
		}
		parts = append(parts, "REMOVE "+strings.Join(names, ", "))
	}
	ue.Expr = strings.Join(parts, " ")
	return ue, nil
}

// condition merges a condition's placeholders into ue and returns the
// expression unchanged. Placeholders must not collide with #f/#r/:v.
func (ue *updateExpr) condition(expr string, names map[string]string, values map[string]interface{}) (string, error) {
	for k, v := range names {
		ue.Names[k] = v
	}
	for k, v := range values {
		av, err := attributevalue.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("marshal condition value %s: %w", k, err)
		}
		ue.Values[k] = av
	}
	return expr, nil
}
