package i18n

import "strings"

// Translator retrieves localized messages for error codes and validation
// error kinds. data provides optional values interpolated into the message
// wherever the template contains {{key}}.
type Translator interface {
	Message(code string, data map[string]string) string
}

// dictTranslator is the built-in dictionary-based Translator.
type dictTranslator struct{ lang string }

var dictionaries = map[string]map[string]string{
	"en": {
		// validation error kinds
		"invalid":   "is invalid",
		"blank":     "can't be blank",
		"inclusion": "is not included in the list",
		"too_short": "must have at least one element",
		"taken":     "has already been taken",
		// error codes
		"cast_error":              "failed casting {{value}}, only {{allowed}} are allowed",
		"invalid_enum_value":      "invalid value '{{value}}' is assigned",
		"expand_wrapper":          "{{value}} is an invalid model schema",
		"unrecognized_attribute":  "unknown attribute '{{attribute}}' for {{schema}}",
		"key_not_found":           "key not found: {{name}}",
		"unknown_strategy":        "unknown error combination strategy: {{name}}",
		"schema_error":            "invalid schema {{schema}}: {{reason}}",
		"discriminator_missing":   "{{schema}} does not declare a value for discriminator {{discriminator}}",
		"discriminator_duplicate": "{{schema}} and {{other}} share discriminator value {{value}}",
		"discriminator_absent":    "missing discriminator {{discriminator}} in payload",
		"discriminator_unknown":   "unknown discriminator value for union: {{value}}",
	},
	"ja": {
		"invalid":                 "は不正な値です",
		"blank":                   "を入力してください",
		"inclusion":               "は一覧にありません",
		"too_short":               "は1件以上必要です",
		"taken":                   "はすでに使用されています",
		"cast_error":              "{{value}} を変換できません ({{allowed}} のみ許可されています)",
		"invalid_enum_value":      "不正な値 '{{value}}' が指定されました",
		"expand_wrapper":          "{{value}} は有効なモデルスキーマではありません",
		"unrecognized_attribute":  "{{schema}} に未知の属性 '{{attribute}}' があります",
		"key_not_found":           "キーが見つかりません: {{name}}",
		"unknown_strategy":        "未知のエラー結合戦略です: {{name}}",
		"schema_error":            "スキーマ {{schema}} が不正です: {{reason}}",
		"discriminator_missing":   "{{schema}} は判別子 {{discriminator}} の値を宣言していません",
		"discriminator_duplicate": "{{schema}} と {{other}} の判別子の値 {{value}} が重複しています",
		"discriminator_absent":    "判別子 {{discriminator}} がありません",
		"discriminator_unknown":   "未知の判別子の値です: {{value}}",
	},
}

func (t dictTranslator) Message(code string, data map[string]string) string {
	msg, ok := dictionaries[t.lang][code]
	if !ok {
		msg, ok = dictionaries["en"][code]
	}
	if !ok {
		return code
	}
	return Interpolate(msg, data)
}

// Interpolate replaces {{key}} placeholders in msg with values from data.
// Placeholders without a value are left untouched.
func Interpolate(msg string, data map[string]string) string {
	if len(data) == 0 || !strings.Contains(msg, "{{") {
		return msg
	}
	pairs := make([]string, 0, len(data)*2)
	for k, v := range data {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

var currentTranslator Translator = dictTranslator{lang: "en"}

// SetLanguage switches the built-in Translator language ("en"/"ja").
func SetLanguage(lang string) {
	if lang != "ja" {
		lang = "en"
	}
	currentTranslator = dictTranslator{lang: lang}
}

// SetTranslator replaces the Translator implementation (not limited to the
// dictionary version).
func SetTranslator(tr Translator) {
	if tr == nil {
		currentTranslator = dictTranslator{lang: "en"}
		return
	}
	currentTranslator = tr
}

// T fetches a message for the given code using the current Translator.
func T(code string, data map[string]string) string { return currentTranslator.Message(code, data) }
