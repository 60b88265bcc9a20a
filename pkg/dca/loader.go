package dca

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFS walks fsys and parses every JSON/YAML schema document. A nil fsys
// yields an empty store. Declaring the same table twice is an error.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := NewStore()
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isSchemaFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("dca: read %s: %w", path, err)
		}

		doc, err := parseDocument(data, path)
		if err != nil {
			return err
		}

		for name, raw := range doc.Tables {
			tableName := strings.TrimSpace(name)
			if tableName == "" {
				return fmt.Errorf("dca: file %s defines an empty table name", path)
			}
			if _, exists := store.tables[tableName]; exists {
				return fmt.Errorf("dca: duplicate table %q (file %s)", tableName, path)
			}
			table, err := normaliseTable(raw, tableName, path)
			if err != nil {
				return err
			}
			store.tables[tableName] = table
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// LoadDir is LoadFS over a directory on disk.
func LoadDir(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return NewStore(), nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("dca: schema dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dca: schema dir %s is not a directory", dir)
	}
	return LoadFS(os.DirFS(dir))
}

type documentFile struct {
	Tables map[string]tableFile `json:"tables" yaml:"tables"`
}

type tableFile struct {
	Config struct {
		DataContainer     string `json:"dataContainer" yaml:"dataContainer"`
		UseRawRequestData bool   `json:"useRawRequestData" yaml:"useRawRequestData"`
	} `json:"config" yaml:"config"`
	List struct {
		Sorting struct {
			Mode int     `json:"mode" yaml:"mode"`
			Root []int64 `json:"root" yaml:"root"`
		} `json:"sorting" yaml:"sorting"`
		Operations       []operationFile `json:"operations" yaml:"operations"`
		GlobalOperations []operationFile `json:"global_operations" yaml:"global_operations"`
	} `json:"list" yaml:"list"`
	Palettes    map[string]any       `json:"palettes" yaml:"palettes"`
	Subpalettes map[string]string    `json:"subpalettes" yaml:"subpalettes"`
	Fields      map[string]fieldFile `json:"fields" yaml:"fields"`
}

type operationFile struct {
	Key          string      `json:"key" yaml:"key"`
	Label        flexStrings `json:"label" yaml:"label"`
	Href         string      `json:"href" yaml:"href"`
	Icon         string      `json:"icon" yaml:"icon"`
	Class        string      `json:"class" yaml:"class"`
	Attributes   string      `json:"attributes" yaml:"attributes"`
	ShowOnSelect bool        `json:"showOnSelect" yaml:"showOnSelect"`
	Callback     string      `json:"button_callback" yaml:"button_callback"`
}

type fieldFile struct {
	Label        flexStrings `json:"label" yaml:"label"`
	InputType    string      `json:"inputType" yaml:"inputType"`
	Exclude      bool        `json:"exclude" yaml:"exclude"`
	Eval         evalFile    `json:"eval" yaml:"eval"`
	Options      []Option    `json:"options" yaml:"options"`
	XLabel       flexStrings `json:"xlabel" yaml:"xlabel"`
	Wizard       flexStrings `json:"wizard" yaml:"wizard"`
	InputField   string      `json:"input_field_callback" yaml:"input_field_callback"`
	LoadCallback flexStrings `json:"load_callback" yaml:"load_callback"`
}

type evalFile struct {
	Mandatory         bool    `json:"mandatory" yaml:"mandatory"`
	Multiple          bool    `json:"multiple" yaml:"multiple"`
	ReadOnly          bool    `json:"readonly" yaml:"readonly"`
	Rgxp              string  `json:"rgxp" yaml:"rgxp"`
	MinLength         int     `json:"minlength" yaml:"minlength"`
	MaxLength         int     `json:"maxlength" yaml:"maxlength"`
	DatePicker        bool    `json:"datepicker" yaml:"datepicker"`
	ColorPicker       bool    `json:"colorpicker" yaml:"colorpicker"`
	SubmitOnChange    bool    `json:"submitOnChange" yaml:"submitOnChange"`
	HelpWizard        bool    `json:"helpwizard" yaml:"helpwizard"`
	RTE               string  `json:"rte" yaml:"rte"`
	DCAPicker         any     `json:"dcaPicker" yaml:"dcaPicker"`
	TLClass           string  `json:"tl_class" yaml:"tl_class"`
	FieldType         string  `json:"fieldType" yaml:"fieldType"`
	UseRawRequestData *bool   `json:"useRawRequestData" yaml:"useRawRequestData"`
	DoNotSaveEmpty    bool    `json:"doNotSaveEmpty" yaml:"doNotSaveEmpty"`
	Rule              string  `json:"rule" yaml:"rule"`
	Size              int     `json:"size" yaml:"size"`
	RootNodes         []int64 `json:"rootNodes" yaml:"rootNodes"`
}

// flexStrings accepts either a scalar string or a list of strings.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*f = flexStrings{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*f = list
	return nil
}

func (f *flexStrings) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*f = flexStrings{node.Value}
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*f = list
	return nil
}

func (f flexStrings) label() Label {
	var out Label
	if len(f) > 0 {
		out.Title = f[0]
	}
	if len(f) > 1 {
		out.Help = f[1]
	}
	return out
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("dca: file %s is empty", source)
	}
	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return documentFile{}, fmt.Errorf("dca: parse %s: invalid JSON or YAML: %w", source, err)
	}
	return doc, nil
}

func normaliseTable(raw tableFile, name, source string) (TableSpec, error) {
	table := TableSpec{
		Name:   name,
		Source: source,
		Config: TableConfig{
			DataContainer:     raw.Config.DataContainer,
			UseRawRequestData: raw.Config.UseRawRequestData,
		},
		Sorting: Sorting{
			Mode: raw.List.Sorting.Mode,
			Root: append([]int64(nil), raw.List.Sorting.Root...),
		},
		Palettes:    make(map[string]string, len(raw.Palettes)),
		Subpalettes: make(map[string]string, len(raw.Subpalettes)),
		Fields:      make(map[string]FieldSpec, len(raw.Fields)),
	}
	if table.Config.DataContainer == "" {
		table.Config.DataContainer = "Table"
	}

	for key, value := range raw.Palettes {
		if key == SelectorKey {
			selectors, err := stringList(value)
			if err != nil {
				return TableSpec{}, fmt.Errorf("dca: table %q (file %s) %s: %w", name, source, SelectorKey, err)
			}
			table.Selectors = selectors
			continue
		}
		text, ok := value.(string)
		if !ok {
			return TableSpec{}, fmt.Errorf("dca: table %q (file %s) palette %q must be a string", name, source, key)
		}
		table.Palettes[key] = text
	}
	for key, value := range raw.Subpalettes {
		table.Subpalettes[key] = value
	}

	for key, rawField := range raw.Fields {
		fieldName := strings.TrimSpace(key)
		if fieldName == "" {
			return TableSpec{}, fmt.Errorf("dca: table %q (file %s) defines an empty field name", name, source)
		}
		field, err := normaliseField(rawField, fieldName)
		if err != nil {
			return TableSpec{}, fmt.Errorf("dca: table %q (file %s): %w", name, source, err)
		}
		table.Fields[fieldName] = field
	}

	var err error
	if table.Operations, err = normaliseOperations(raw.List.Operations); err != nil {
		return TableSpec{}, fmt.Errorf("dca: table %q (file %s) operations: %w", name, source, err)
	}
	if table.GlobalOperations, err = normaliseOperations(raw.List.GlobalOperations); err != nil {
		return TableSpec{}, fmt.Errorf("dca: table %q (file %s) global_operations: %w", name, source, err)
	}
	return table, nil
}

func normaliseField(raw fieldFile, name string) (FieldSpec, error) {
	field := FieldSpec{
		Name:      name,
		Label:     raw.Label.label(),
		InputType: strings.TrimSpace(raw.InputType),
		Exclude:   raw.Exclude,
		Options:   append([]Option(nil), raw.Options...),
		Eval: Eval{
			Mandatory:         raw.Eval.Mandatory,
			Multiple:          raw.Eval.Multiple,
			ReadOnly:          raw.Eval.ReadOnly,
			Rgxp:              raw.Eval.Rgxp,
			MinLength:         raw.Eval.MinLength,
			MaxLength:         raw.Eval.MaxLength,
			DatePicker:        raw.Eval.DatePicker,
			ColorPicker:       raw.Eval.ColorPicker,
			SubmitOnChange:    raw.Eval.SubmitOnChange,
			HelpWizard:        raw.Eval.HelpWizard,
			RTE:               raw.Eval.RTE,
			TLClass:           raw.Eval.TLClass,
			FieldType:         raw.Eval.FieldType,
			UseRawRequestData: raw.Eval.UseRawRequestData,
			DoNotSaveEmpty:    raw.Eval.DoNotSaveEmpty,
			Rule:              raw.Eval.Rule,
			Size:              raw.Eval.Size,
			RootNodes:         append([]int64(nil), raw.Eval.RootNodes...),
		},
	}

	picker, err := normalisePicker(raw.Eval.DCAPicker)
	if err != nil {
		return FieldSpec{}, fmt.Errorf("field %q dcaPicker: %w", name, err)
	}
	field.Eval.DCAPicker = picker

	if field.XLabel, err = parseCallbacks(raw.XLabel); err != nil {
		return FieldSpec{}, fmt.Errorf("field %q xlabel: %w", name, err)
	}
	if field.Wizard, err = parseCallbacks(raw.Wizard); err != nil {
		return FieldSpec{}, fmt.Errorf("field %q wizard: %w", name, err)
	}
	if field.Load, err = parseCallbacks(raw.LoadCallback); err != nil {
		return FieldSpec{}, fmt.Errorf("field %q load_callback: %w", name, err)
	}
	if strings.TrimSpace(raw.InputField) != "" {
		cb, err := ParseCallback(raw.InputField)
		if err != nil {
			return FieldSpec{}, fmt.Errorf("field %q input_field_callback: %w", name, err)
		}
		field.InputField = &cb
	}
	return field, nil
}

func normaliseOperations(raw []operationFile) ([]Operation, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]Operation, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for idx, entry := range raw {
		key := strings.TrimSpace(entry.Key)
		if key == "" {
			return nil, fmt.Errorf("entry %d has an empty key", idx)
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate key %q", key)
		}
		seen[key] = struct{}{}

		op := Operation{
			Key:          key,
			Label:        entry.Label.label(),
			Href:         entry.Href,
			Icon:         entry.Icon,
			Class:        entry.Class,
			Attributes:   entry.Attributes,
			ShowOnSelect: entry.ShowOnSelect,
		}
		if strings.TrimSpace(entry.Callback) != "" {
			cb, err := ParseCallback(entry.Callback)
			if err != nil {
				return nil, fmt.Errorf("operation %q: %w", key, err)
			}
			op.Button = &cb
		}
		out = append(out, op)
	}
	return out, nil
}

func normalisePicker(raw any) (*DCAPicker, error) {
	switch value := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		if !value {
			return nil, nil
		}
		return &DCAPicker{}, nil
	case map[string]any:
		picker := &DCAPicker{}
		for key, entry := range value {
			text, ok := entry.(string)
			if !ok {
				return nil, fmt.Errorf("option %q must be a string", key)
			}
			switch key {
			case "do":
				picker.Do = text
			case "context":
				picker.Context = text
			case "icon":
				picker.Icon = text
			}
		}
		return picker, nil
	default:
		return nil, fmt.Errorf("unsupported value %T", raw)
	}
}

func parseCallbacks(raw []string) ([]Callback, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]Callback, 0, len(raw))
	for _, entry := range raw {
		cb, err := ParseCallback(entry)
		if err != nil {
			return nil, err
		}
		out = append(out, cb)
	}
	return out, nil
}

func stringList(raw any) ([]string, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", raw)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		text, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected string entries, got %T", item)
		}
		out = append(out, strings.TrimSpace(text))
	}
	return out, nil
}

func isSchemaFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
