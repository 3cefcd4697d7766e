package masking

import "regexp"

// DefaultMaskChar is used wherever a caller does not supply one.
const DefaultMaskChar = "*"

// entitySuffixes are the organization classifier tokens preserved verbatim
// when a matched entity name is masked. Order matters: longer suffixes are
// tried before their substrings.
var entitySuffixes = []string{
	"股份有限公司",
	"有限责任公司",
	"集团有限公司",
	"有限公司",
	"公司",
	"企业",
	"集团",
}

// entityMarkers flag a match as an organization name for the suffix-preserving
// special case in MaskRegex.
var entityMarkers = []string{"公司", "企业"}

// Catalog is the fixed, ordered set of built-in detectors. It is constructed
// once at process start and read-only thereafter; iteration order is part of
// the contract because smart detection composes the entries sequentially.
type Catalog struct {
	entries []MaskPattern
	byName  map[string]int
}

// NewCatalog builds the default ten-detector catalog.
func NewCatalog() *Catalog {
	entries := []MaskPattern{
		{
			Name:          "mobile_number",
			Pattern:       regexp.MustCompile(`1[3-9]\d{9}`),
			Mode:          ModePartial,
			PreserveChars: 3,
			MaskChar:      DefaultMaskChar,
			Description:   "Mainland CN mobile number, first 3 digits kept",
		},
		{
			Name:          "national_id",
			Pattern:       regexp.MustCompile(`[1-9]\d{5}(18|19|20)\d{2}(0[1-9]|1[0-2])(0[1-9]|[12]\d|3[01])\d{3}[\dXx]`),
			Mode:          ModePartial,
			PreserveChars: 6,
			MaskChar:      DefaultMaskChar,
			Description:   "18-digit national ID, first 6 digits kept",
		},
		{
			Name:          "email",
			Pattern:       regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`),
			Mode:          ModePartial,
			PreserveChars: 2,
			MaskChar:      DefaultMaskChar,
			Description:   "Email address, first 2 characters kept",
		},
		{
			Name:          "bank_card",
			Pattern:       regexp.MustCompile(`\b\d{16,19}\b`),
			Mode:          ModePartial,
			PreserveChars: 4,
			MaskChar:      DefaultMaskChar,
			Description:   "Bank card number, first 4 digits kept",
		},
		{
			Name:          "ipv4",
			Pattern:       regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`),
			Mode:          ModePartial,
			PreserveChars: 4,
			MaskChar:      DefaultMaskChar,
			Description:   "IPv4 address",
		},
		{
			Name:          "entity_reg_code",
			Pattern:       regexp.MustCompile(`[0-9A-HJ-NPQRTUW-Y]{2}\d{6}[0-9A-HJ-NPQRTUW-Y]{10}`),
			Mode:          ModePartial,
			PreserveChars: 4,
			MaskChar:      DefaultMaskChar,
			Description:   "18-char unified social credit code, first 4 kept",
		},
		{
			Name:          "org_name",
			Pattern:       regexp.MustCompile(`[\x{4e00}-\x{9fa5}]{2,10}(?:有限公司|股份有限公司|有限责任公司|集团|公司|企业|厂|店|行|中心|工作室|合伙企业|控股|科技|网络|信息|技术|贸易|商贸|实业|发展|建设|投资|管理|咨询|服务|教育|文化|传媒|电子|汽车|房地产|能源|化工|制造|物流|运输|建筑|装饰|设计|广告|餐饮|酒店|医院|学校|银行|保险|证券|基金)`),
			Mode:          ModePartial,
			PreserveChars: 0,
			MaskChar:      DefaultMaskChar,
			Description:   "Organization name, name fully masked, suffix kept",
		},
		{
			Name:          "street_address",
			Pattern:       regexp.MustCompile(`[\x{4e00}-\x{9fa5}]{2,6}(?:省|市|区|县|镇|乡|街道|路|巷|号|栋|单元|楼|层|室|户)[\x{4e00}-\x{9fa5}\d\w\-#号]*`),
			Mode:          ModePartial,
			PreserveChars: 3,
			MaskChar:      DefaultMaskChar,
			Description:   "Street address, first 3 characters kept",
		},
		{
			Name:          "license_plate",
			Pattern:       regexp.MustCompile(`[京津沪渝冀豫云辽黑湘皖鲁新苏浙赣鄂桂甘晋蒙陕吉闽贵粤青藏川宁琼使领][A-Z][A-Z0-9]{5,6}`),
			Mode:          ModePartial,
			PreserveChars: 2,
			MaskChar:      DefaultMaskChar,
			Description:   "CN license plate, first 2 characters kept",
		},
		{
			Name:          "amount",
			Pattern:       regexp.MustCompile(`(?:¥|￥|USD?|\$)\s*(?:\d{1,3}(?:,\d{3})+(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)\s*(?:万元?|元)?|(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{1,2})?\s*(?:万元?|元)`),
			Mode:          ModePartial,
			PreserveChars: 0,
			MaskChar:      DefaultMaskChar,
			Description:   "Monetary amount, fully masked",
		},
	}

	byName := make(map[string]int, len(entries))
	for i, entry := range entries {
		byName[entry.Name] = i
	}

	return &Catalog{entries: entries, byName: byName}
}

// Lookup returns the pattern registered under name.
func (c *Catalog) Lookup(name string) (MaskPattern, bool) {
	i, ok := c.byName[name]
	if !ok {
		return MaskPattern{}, false
	}
	return c.entries[i], true
}

// Entries returns the detectors in their fixed iteration order. The returned
// slice must not be modified.
func (c *Catalog) Entries() []MaskPattern {
	return c.entries
}

// Names returns the detector names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.entries))
	for i, entry := range c.entries {
		names[i] = entry.Name
	}
	return names
}
