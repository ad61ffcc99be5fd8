package db

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"marketplace-system/pkg/types"
)

// ApplyListParams накладывает на билдер фильтры, сортировку и пагинацию
// из разобранных query-параметров. allowed - белый список "внешнее имя ->
// колонка"; все, чего в нем нет, молча игнорируется.
func ApplyListParams(builder sq.SelectBuilder, filter types.Filter, allowed map[string]string) sq.SelectBuilder {
	for field, value := range filter.Filter {
		column, ok := allowed[field]
		if !ok {
			continue
		}
		builder = builder.Where(sq.Eq{column: value})
	}

	for field, direction := range filter.Sort {
		column, ok := allowed[field]
		if !ok {
			continue
		}
		dir := "ASC"
		if strings.EqualFold(direction, "desc") {
			dir = "DESC"
		}
		builder = builder.OrderBy(fmt.Sprintf("%s %s", column, dir))
	}

	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}
	return builder
}
