package masking

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/docshield/docshield/internal/errs"
)

func TestNormalizeKeywords(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "mixed separators",
			raw:  "张三,李四；王五\n赵六;钱七，孙八",
			want: []string{"张三", "李四", "王五", "赵六", "钱七", "孙八"},
		},
		{
			name: "whitespace trimmed and empties dropped",
			raw:  "  张三 , , \n 李四  ",
			want: []string{"张三", "李四"},
		},
		{
			name: "empty input",
			raw:  "",
			want: nil,
		},
		{
			name: "duplicates kept in order",
			raw:  "张三,张三",
			want: []string{"张三", "张三"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeKeywords(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeKeywords(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestMaskFull(t *testing.T) {
	t.Run("masks every occurrence", func(t *testing.T) {
		got := MaskFull("联系张三经理，张三负责", "张三", "*")
		want := "联系**经理，**负责"
		if got != want {
			t.Errorf("MaskFull = %q, want %q", got, want)
		}
	})

	t.Run("preserves text length", func(t *testing.T) {
		text := "合同编号A-2024-001由张三签署"
		got := MaskFull(text, "张三", "*")
		if utf8.RuneCountInString(got) != utf8.RuneCountInString(text) {
			t.Errorf("length changed: %d -> %d", utf8.RuneCountInString(text), utf8.RuneCountInString(got))
		}
	})

	t.Run("regex metacharacters are literal", func(t *testing.T) {
		got := MaskFull("code a.b here, acb stays", "a.b", "*")
		want := "code *** here, acb stays"
		if got != want {
			t.Errorf("MaskFull = %q, want %q", got, want)
		}
	})

	t.Run("empty keyword is a no-op", func(t *testing.T) {
		if got := MaskFull("text", "", "*"); got != "text" {
			t.Errorf("MaskFull = %q, want unchanged", got)
		}
	})
}

func TestMaskPartial(t *testing.T) {
	t.Run("keeps leading characters", func(t *testing.T) {
		got := MaskPartial("电话13800138000", "13800138000", 3, "*")
		want := "电话138********"
		if got != want {
			t.Errorf("MaskPartial = %q, want %q", got, want)
		}
	})

	t.Run("short match untouched", func(t *testing.T) {
		got := MaskPartial("编号AB", "AB", 3, "*")
		if got != "编号AB" {
			t.Errorf("MaskPartial = %q, want unchanged", got)
		}
	})
}

func TestApplySmartDetection(t *testing.T) {
	engine := NewEngine(nil, nil)

	tests := []struct {
		name     string
		text     string
		want     string
		category string
		count    int
	}{
		{
			name:     "mobile number keeps prefix",
			text:     "电话13800138000",
			want:     "电话138********",
			category: "mobile_number",
			count:    1,
		},
		{
			name:     "email keeps first two characters",
			text:     "邮箱zhangsan@example.com",
			want:     "邮箱zh" + strings.Repeat("*", 18),
			category: "email",
			count:    1,
		},
		{
			name:     "national id keeps region prefix",
			text:     "身份证110101200203078515",
			want:     "身份证110101" + strings.Repeat("*", 12),
			category: "national_id",
			count:    1,
		},
		{
			name:     "bank card keeps first four digits",
			text:     "卡号 6222021234567890123 已登记",
			want:     "卡号 6222" + strings.Repeat("*", 15) + " 已登记",
			category: "bank_card",
			count:    1,
		},
		{
			name:     "organization suffix preserved",
			text:     "阿里巴巴网络技术有限公司",
			want:     strings.Repeat("*", 8) + "有限公司",
			category: "org_name",
			count:    1,
		},
		{
			name:     "amount fully masked",
			text:     "价格￥1,234.56元",
			want:     "价格" + strings.Repeat("*", 10),
			category: "amount",
			count:    1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, stats := engine.ApplySmartDetection(tt.text)
			if got != tt.want {
				t.Errorf("ApplySmartDetection(%q) = %q, want %q", tt.text, got, tt.want)
			}
			if stats[tt.category] != tt.count {
				t.Errorf("stats[%s] = %d, want %d (stats: %v)", tt.category, stats[tt.category], tt.count, stats)
			}
		})
	}
}

// Detectors compose sequentially: each one scans the previous detector's
// output. An 18-digit ID with a 19xx birth year contains a span the earlier
// mobile detector claims first, so the ID detector never sees it whole.
func TestApplySmartDetectionSequentialOrder(t *testing.T) {
	engine := NewEngine(nil, nil)

	got, stats := engine.ApplySmartDetection("110101199003078515")
	want := "110101199" + strings.Repeat("*", 8) + "5"
	if got != want {
		t.Fatalf("ApplySmartDetection = %q, want %q", got, want)
	}
	if stats["mobile_number"] != 1 {
		t.Errorf("mobile_number count = %d, want 1", stats["mobile_number"])
	}
	if stats["national_id"] != 0 {
		t.Errorf("national_id count = %d, want 0 (span already claimed)", stats["national_id"])
	}
	if stats["bank_card"] != 0 {
		t.Errorf("bank_card count = %d, want 0", stats["bank_card"])
	}
}

func TestBuildMaskedText(t *testing.T) {
	engine := NewEngine(nil, nil)

	t.Run("keywords then smart detection", func(t *testing.T) {
		masked, stats := engine.BuildMaskedText(
			"张三的电话是13800138000",
			[]string{"张三"},
			ModeFull, 0, "*", true,
		)
		want := "**的电话是138********"
		if masked != want {
			t.Errorf("masked = %q, want %q", masked, want)
		}
		if stats.ManualKeywords != 1 {
			t.Errorf("ManualKeywords = %d, want 1", stats.ManualKeywords)
		}
		if stats.SmartDetection["mobile_number"] != 1 {
			t.Errorf("mobile_number = %d, want 1", stats.SmartDetection["mobile_number"])
		}
	})

	t.Run("partial keyword mode", func(t *testing.T) {
		masked, _ := engine.BuildMaskedText("项目代号Phoenix", []string{"Phoenix"}, ModePartial, 2, "*", false)
		want := "项目代号Ph*****"
		if masked != want {
			t.Errorf("masked = %q, want %q", masked, want)
		}
	})

	t.Run("smart disabled leaves patterns alone", func(t *testing.T) {
		masked, stats := engine.BuildMaskedText("电话13800138000", []string{"电话"}, ModeFull, 0, "*", false)
		want := "**13800138000"
		if masked != want {
			t.Errorf("masked = %q, want %q", masked, want)
		}
		if stats.TotalSmart() != 0 {
			t.Errorf("TotalSmart = %d, want 0", stats.TotalSmart())
		}
	})

	t.Run("empty mask char falls back to default", func(t *testing.T) {
		masked, _ := engine.BuildMaskedText("张三", []string{"张三"}, ModeFull, 0, "", false)
		if masked != "**" {
			t.Errorf("masked = %q, want %q", masked, "**")
		}
	})
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		keywords    []string
		enableSmart bool
		wantErr     bool
	}{
		{"valid with keywords", "text", []string{"k"}, false, false},
		{"valid with smart only", "text", nil, true, false},
		{"empty text", "   ", []string{"k"}, true, true},
		{"no masking source", "text", nil, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRequest(tt.text, tt.keywords, tt.enableSmart)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateRequest error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errs.IsKind(err, errs.KindValidation) {
				t.Errorf("error kind = %v, want validation", err)
			}
		})
	}
}

func TestFindingsCatalogOrder(t *testing.T) {
	catalog := NewCatalog()
	stats := MaskStats{SmartDetection: map[string]int{
		"email":         2,
		"mobile_number": 1,
		"amount":        3,
	}}

	findings := stats.Findings(catalog)
	got := make([]string, len(findings))
	for i, f := range findings {
		got[i] = f.Category
	}
	want := []string{"mobile_number", "email", "amount"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Findings order = %v, want %v", got, want)
	}
}
