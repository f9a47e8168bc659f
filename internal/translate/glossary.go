package translate

import (
	"sort"
	"strings"
	"unicode/utf8"
)

// glossaryTerms is the builtin bilingual finance/crypto terminology table
// used by the terminal fallback backend.
var glossaryTerms = map[string]string{
	// institutions
	"Bank for International Settlements": "国际清算银行",
	"International Monetary Fund":        "国际货币基金组织",
	"Federal Reserve":                    "美联储",
	"European Central Bank":              "欧洲央行",
	"Securities and Exchange Commission": "美国证券交易委员会",
	"Financial Conduct Authority":        "英国金融行为监管局",
	"Monetary Authority of Singapore":    "新加坡金融管理局",
	"Hong Kong Monetary Authority":       "香港金融管理局",
	"Bank of England":                    "英格兰银行",
	"Financial Stability Board":          "金融稳定委员会",
	"People's Bank of China":             "中国人民银行",
	// terminology
	"cryptocurrency":                "加密货币",
	"crypto":                        "加密",
	"bitcoin":                       "比特币",
	"ethereum":                      "以太坊",
	"stablecoin":                    "稳定币",
	"central bank digital currency": "央行数字货币",
	"CBDC":                          "央行数字货币",
	"digital currency":              "数字货币",
	"digital asset":                 "数字资产",
	"blockchain":                    "区块链",
	"decentralized finance":         "去中心化金融",
	"DeFi":                          "去中心化金融",
	"token":                         "代币",
	"virtual asset":                 "虚拟资产",
	"virtual currency":              "虚拟货币",
	"NFT":                           "非同质化代币",
	"mining":                        "挖矿",
	"exchange":                      "交易所",
	"wallet":                        "钱包",
	"custody":                       "托管",
	"anti-money laundering":         "反洗钱",
	"AML":                           "反洗钱",
	"know your customer":            "了解你的客户",
	"KYC":                           "了解你的客户",
	"fintech":                       "金融科技",
	"payment":                       "支付",
	"settlement":                    "结算",
	"clearing":                      "清算",
	"regulation":                    "监管",
	"compliance":                    "合规",
	"enforcement":                   "执法",
	"sanctions":                     "制裁",
	"risk":                          "风险",
	"financial stability":           "金融稳定",
	"monetary policy":               "货币政策",
	"interest rate":                 "利率",
	"inflation":                     "通胀",
	"liquidity":                     "流动性",
	"capital":                       "资本",
	"asset":                         "资产",
	"securities":                    "证券",
	"derivatives":                   "衍生品",
	"futures":                       "期货",
	"options":                       "期权",
	"trading":                       "交易",
	"market":                        "市场",
	"investor":                      "投资者",
	"consumer protection":           "消费者保护",
	"disclosure":                    "披露",
	"transparency":                  "透明度",
	"framework":                     "框架",
	"guidance":                      "指引",
	"consultation":                  "咨询",
	"proposal":                      "提案",
	"rule":                          "规则",
	"press release":                 "新闻稿",
	"statement":                     "声明",
	"speech":                        "讲话",
	"report":                        "报告",
	"research":                      "研究",
	"analysis":                      "分析",
	"review":                        "审查",
	"assessment":                    "评估",
}

// Glossary annotates known English terms with their Chinese equivalents in
// the 中文(English) pattern. It is the terminal backend of the fallback
// chain: it always produces a result and never fails.
type Glossary struct {
	terms []string // sorted longest first so phrases win over their words
}

func NewGlossary() *Glossary {
	terms := make([]string, 0, len(glossaryTerms))
	for t := range glossaryTerms {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if len(terms[i]) != len(terms[j]) {
			return len(terms[i]) > len(terms[j])
		}
		return terms[i] < terms[j]
	})
	return &Glossary{terms: terms}
}

func (g *Glossary) Name() string {
	return "glossary"
}

// Annotate rewrites text in a single pass, replacing each case-insensitive
// occurrence of a glossary term with 中文(term). Text without any known
// term is returned unchanged.
func (g *Glossary) Annotate(text string) string {
	var b strings.Builder
	i := 0
	for i < len(text) {
		term := g.matchAt(text, i)
		if term == "" {
			_, size := utf8.DecodeRuneInString(text[i:])
			b.WriteString(text[i : i+size])
			i += size
			continue
		}
		b.WriteString(glossaryTerms[term])
		b.WriteString("(")
		b.WriteString(term)
		b.WriteString(")")
		i += len(term)
	}
	return b.String()
}

func (g *Glossary) matchAt(text string, i int) string {
	for _, term := range g.terms {
		end := i + len(term)
		if end > len(text) {
			continue
		}
		if strings.EqualFold(text[i:end], term) {
			return term
		}
	}
	return ""
}
