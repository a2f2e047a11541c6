package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidJSON 请求体或模型返回内容不是合法 JSON。
var ErrInvalidJSON = errors.New("invalid JSON")

// FieldIssue 单个字段约束的违反记录。Keys 仅在 unrecognized_keys 时给出，Path 为所在对象的路径。
type FieldIssue struct {
	Path    string   `json:"path"`
	Message string   `json:"message"`
	Code    string   `json:"code"`
	Keys    []string `json:"keys,omitempty"`
}

// ValidationError 一次校验中全部违反项的集合。
type ValidationError struct {
	Schema string
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		if issue.Path == "" {
			parts = append(parts, issue.Message)
			continue
		}
		parts = append(parts, issue.Path+": "+issue.Message)
	}
	return fmt.Sprintf("%s validation failed: %s", e.Schema, strings.Join(parts, "; "))
}

// AsValidationError 从错误链中取出 ValidationError。
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// Schema 某一种请求/输出形状的校验器。
type Schema[T any] struct {
	name  string
	extra func(*T) []FieldIssue
}

func newSchema[T any](name string, extra func(*T) []FieldIssue) Schema[T] {
	return Schema[T]{name: name, extra: extra}
}

func (s Schema[T]) Name() string {
	return s.name
}

// Validate 校验已解码的值；通过返回 nil，否则返回 *ValidationError。
func (s Schema[T]) Validate(value *T) error {
	if value == nil {
		return &ValidationError{Schema: s.name, Issues: []FieldIssue{{Message: "value is required", Code: "required"}}}
	}
	issues := structIssues(value, "")
	if s.extra != nil {
		issues = append(issues, s.extra(value)...)
	}
	if len(issues) == 0 {
		return nil
	}
	return &ValidationError{Schema: s.name, Issues: issues}
}

// Parse 解码并严格校验 JSON：
// 语法错误返回包装了 ErrInvalidJSON 的错误；
// 类型不符、未知字段、约束违反统一以 *ValidationError 返回，同时返回尽力解码出的值。
func (s Schema[T]) Parse(data []byte) (T, error) {
	var value T
	var issues []FieldIssue

	if err := json.Unmarshal(data, &value); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return value, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		issues = append(issues, typeIssue(typeErr))
	}

	issues = append(issues, unknownKeyIssues(data, reflect.TypeOf(value), "")...)

	if err := s.Validate(&value); err != nil {
		verr, _ := AsValidationError(err)
		issues = mergeIssues(issues, verr.Issues)
	}

	if len(issues) == 0 {
		return value, nil
	}
	return value, &ValidationError{Schema: s.name, Issues: issues}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func structIssues(value any, prefix string) []FieldIssue {
	err := validate.Struct(value)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []FieldIssue{{Path: prefix, Message: err.Error(), Code: "invalid"}}
	}

	issues := make([]FieldIssue, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		issues = append(issues, FieldIssue{
			Path:    joinPath(prefix, trimRootNamespace(fe.Namespace())),
			Message: issueMessage(fe),
			Code:    issueCode(fe.Tag()),
		})
	}
	return issues
}

// trimRootNamespace 去掉命名空间中的顶层 Go 类型名，例如 "ListingRequest.text" -> "text"。
func trimRootNamespace(ns string) string {
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func joinPath(prefix, path string) string {
	switch {
	case prefix == "":
		return path
	case path == "":
		return prefix
	default:
		return prefix + "." + path
	}
}

func issueMessage(fe validator.FieldError) string {
	param := fe.Param()
	switch fe.Tag() {
	case "required":
		return "is required"
	case "url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "min":
		return lengthMessage(fe.Kind(), "at least", param, "greater than or equal to")
	case "max":
		return lengthMessage(fe.Kind(), "at most", param, "less than or equal to")
	case "gt":
		return "must be greater than " + param
	case "gte":
		return "must be greater than or equal to " + param
	}
	return fmt.Sprintf("failed %q constraint", fe.Tag())
}

func lengthMessage(kind reflect.Kind, bound, param, numeric string) string {
	switch kind {
	case reflect.String:
		return fmt.Sprintf("must contain %s %s character(s)", bound, param)
	case reflect.Slice, reflect.Array, reflect.Map:
		return fmt.Sprintf("must contain %s %s item(s)", bound, param)
	default:
		return fmt.Sprintf("must be %s %s", numeric, param)
	}
}

func issueCode(tag string) string {
	switch tag {
	case "required":
		return "required"
	case "min", "gt", "gte":
		return "too_small"
	case "max":
		return "too_big"
	case "url":
		return "invalid_url"
	case "oneof":
		return "invalid_enum_value"
	}
	return tag
}

func typeIssue(err *json.UnmarshalTypeError) FieldIssue {
	expected := "value"
	if err.Type != nil {
		expected = jsonTypeName(err.Type)
	}
	return FieldIssue{
		Path:    err.Field,
		Message: fmt.Sprintf("expected %s, received %s", expected, err.Value),
		Code:    "invalid_type",
	}
}

func jsonTypeName(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Slice, reflect.Array:
		return "array"
	case reflect.Struct, reflect.Map:
		return "object"
	}
	return t.String()
}

// unknownKeyIssues 按 json 标签名逐个比对对象键（区分大小写），嵌套对象与数组元素递归检查；
// 同一对象中的未知键合并为一条问题。
func unknownKeyIssues(data []byte, t reflect.Type, path string) []FieldIssue {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Struct:
		return objectKeyIssues(data, t, path)
	case reflect.Slice, reflect.Array:
		elem := t.Elem()
		for elem.Kind() == reflect.Ptr {
			elem = elem.Elem()
		}
		if elem.Kind() != reflect.Struct {
			return nil
		}
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil
		}
		var issues []FieldIssue
		for i, item := range items {
			issues = append(issues, unknownKeyIssues(item, elem, fmt.Sprintf("%s[%d]", path, i))...)
		}
		return issues
	}
	return nil
}

func objectKeyIssues(data []byte, t reflect.Type, path string) []FieldIssue {
	decoder := json.NewDecoder(bytes.NewReader(data))
	if tok, err := decoder.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}

	fields := jsonFields(t)
	var unknown []string
	var nested []FieldIssue
	seen := make(map[string]struct{})
	for decoder.More() {
		tok, err := decoder.Token()
		if err != nil {
			break
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			break
		}

		fieldType, ok := fields[key]
		if ok {
			nested = append(nested, unknownKeyIssues(raw, fieldType, joinPath(path, key))...)
			continue
		}
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			unknown = append(unknown, key)
		}
	}

	if len(unknown) == 0 {
		return nested
	}
	quoted := make([]string, 0, len(unknown))
	for _, key := range unknown {
		quoted = append(quoted, "'"+key+"'")
	}
	issue := FieldIssue{
		Path:    path,
		Message: "unrecognized key(s) in object: " + strings.Join(quoted, ", "),
		Code:    "unrecognized_keys",
		Keys:    unknown,
	}
	return append([]FieldIssue{issue}, nested...)
}

// jsonFields 结构体可接受的 json 键及其类型，嵌入结构体的字段提升到外层。
func jsonFields(t reflect.Type) map[string]reflect.Type {
	fields := make(map[string]reflect.Type, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			continue
		}
		if field.Anonymous && name == "" {
			embedded := field.Type
			for embedded.Kind() == reflect.Ptr {
				embedded = embedded.Elem()
			}
			if embedded.Kind() == reflect.Struct {
				for key, typ := range jsonFields(embedded) {
					fields[key] = typ
				}
				continue
			}
		}
		if !field.IsExported() {
			continue
		}
		if name == "" {
			name = field.Name
		}
		fields[name] = field.Type
	}
	return fields
}

// mergeIssues 追加校验问题，已因类型错误报告过的路径不再重复。
func mergeIssues(base []FieldIssue, extra []FieldIssue) []FieldIssue {
	seen := make(map[string]struct{}, len(base))
	for _, issue := range base {
		if issue.Code == "invalid_type" {
			seen[issue.Path] = struct{}{}
		}
	}
	for _, issue := range extra {
		if _, dup := seen[issue.Path]; dup {
			continue
		}
		base = append(base, issue)
	}
	return base
}
