package yamlprofile

type YAMLProfile struct {
	Name    string            `yaml:"name"`
	Method  string            `yaml:"method"`
	URL     string            `yaml:"url"`
	Headers []YAMLPair        `yaml:"headers,omitempty"`
	Auth    *YAMLAuth         `yaml:"auth,omitempty"`
	Body    *YAMLBody         `yaml:"body,omitempty"`
	XSS     YAMLXSS           `yaml:"xss"`
}

// YAMLPair keeps header order and duplicates, which a map would lose.
type YAMLPair struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

type YAMLAuth struct {
	Type     string `yaml:"type"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Token    string `yaml:"token,omitempty"`
	KeyName  string `yaml:"key_name,omitempty"`
	KeyValue string `yaml:"key_value,omitempty"`
	Location string `yaml:"location,omitempty"`
}

type YAMLBody struct {
	Type    string          `yaml:"type"`
	Content string          `yaml:"content,omitempty"`
	Fields  []YAMLBodyField `yaml:"fields,omitempty"`
}

type YAMLBodyField struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
	File  bool   `yaml:"file,omitempty"`
}

type YAMLXSS struct {
	ValueType   string `yaml:"value_type"`
	TargetField string `yaml:"target_field,omitempty"`
	Level       string `yaml:"level"`
	MatchPath   string `yaml:"match_path,omitempty"`
}
