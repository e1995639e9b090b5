package sanitizer

import (
	"encoding/json"
	"strconv"
)

// coerce 把 schema 放行的宽松写法收敛成可以按类型解码的形状：
// 数字与布尔转字符串，证书对象取 name 或 title，非数组的 projects/certifications 视为空
func coerce(doc map[string]any) {
	if pi, ok := doc["personalInfo"].(map[string]any); ok {
		stringifyFields(pi)
	}
	for _, key := range []string{"experience", "education", "skills"} {
		stringifyObjects(doc[key])
	}

	if _, ok := doc["projects"].([]any); ok {
		stringifyObjects(doc["projects"])
	} else {
		delete(doc, "projects")
	}

	if certs := flattenCertifications(doc["certifications"]); certs != nil {
		doc["certifications"] = certs
	} else {
		delete(doc, "certifications")
	}

	if v, ok := doc["militaryService"]; ok {
		doc["militaryService"] = stringify(v)
	}
}

func stringifyObjects(v any) {
	arr, ok := v.([]any)
	if !ok {
		return
	}
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			stringifyFields(m)
		}
	}
}

// stringifyFields 原地转换对象的标量字段以及字符串列表里的元素
func stringifyFields(m map[string]any) {
	for k, v := range m {
		if list, ok := v.([]any); ok {
			for i := range list {
				list[i] = stringify(list[i])
			}
			continue
		}
		m[k] = stringify(v)
	}
}

func stringify(v any) any {
	switch t := v.(type) {
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return v
	}
}

func flattenCertifications(v any) []any {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]any, 0, len(arr))
	for _, item := range arr {
		switch t := item.(type) {
		case map[string]any:
			for _, key := range []string{"name", "title"} {
				if s, ok := stringify(t[key]).(string); ok && s != "" {
					out = append(out, s)
					break
				}
			}
		case nil:
		default:
			if s, ok := stringify(t).(string); ok && s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
