package cli

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	msgEnterField    = "Enter %s (%s) [%s]: "
	msgInvalidNumber = "❌ Error: please enter valid numbers (%s was not a number), starting over."
	msgPredicted     = "🔮 Predicted factor of safety (FS): %.3f"
	msgConclusion    = "🛑 Conclusion: %s"
	msgSafe          = "✅ Safe"
	msgNeedsReview   = "⚠️ Needs review"
	msgDangerous     = "❌ Dangerous"
)

var supported = []language.Tag{language.English, language.Vietnamese}

var matcher = language.NewMatcher(supported)

func init() {
	vi := language.Vietnamese
	for key, msg := range map[string]string{
		msgEnterField:    "Nhập %s (%s) [%s]: ",
		msgInvalidNumber: "❌ Lỗi: Vui lòng nhập số hợp lệ (%s không phải là số), nhập lại từ đầu.",
		msgPredicted:     "🔮 Hệ số an toàn dự đoán (FS): %.3f",
		msgConclusion:    "🛑 Kết luận: %s",
		msgSafe:          "✅ An toàn",
		msgNeedsReview:   "⚠️ Cần kiểm tra",
		msgDangerous:     "❌ Nguy hiểm",

		"cohesion":                 "lực dính đơn vị của đất",
		"slip surface length":      "chiều dài mặt trượt",
		"unit weight":              "trọng lượng riêng của đất",
		"slide height":             "chiều cao khối đất trượt",
		"pore water pressure":      "áp lực nước lỗ rỗng",
		"effective friction angle": "góc ma sát trong hiệu quả",
		"slip surface angle":       "góc dốc của mặt trượt",
	} {
		message.SetString(vi, key, msg)
	}
}
