package agents

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"stock-agents/internal/types"
)

var roles = map[Kind]string{
	Commander:         "你是指挥Agent。根据给定的股票上下文以及其他Agent的输出，产出最终评估与操作建议。",
	StockNews:         "你是个股资讯Agent。请联网获取当前及近期该股票的重要消息，并做情绪统计。",
	SectorNews:        "你是板块资讯Agent。请联网获取该股票所属板块的最新资讯和同板块个股涨跌。",
	FinancialAnalysis: "你是个股分析Agent。请联网获取近期财报并重点分析扣非利润、机构持仓与估值。",
	TrendAnalysis:     "你是走势分析Agent。基于日K、分时与成交量数据分析未来走势。",
}

var baseRules = []string{
	"必须输出严格JSON，只输出一个JSON对象，不要Markdown，不要代码块，不要多余文字。",
	"所有字段必须存在；没有数据用null或空数组，不要省略字段。",
	"百分比字段用数值，不带%符号。",
	"evidence中的每条依据必须来自上下文中的消息或公开来源，注明来源与发布时间。",
	"triggers写入场或加仓的触发条件，invalidations写观点失效的条件，riskLimits写止损与仓位上限。",
}

var commanderRules = []string{
	"评估必须汇总其他Agent的输出后再给出分数与结论；失败的Agent输出不得当作依据。",
	"recommendation.action只能取观察、试仓、加仓、减仓、清仓之一。",
}

// BuildPrompt renders the task prompt for kind k. deps are only used by the
// commander, which receives them as a JSON array after the context.
func BuildPrompt(k Kind, contextJSON string, deps []types.AgentResult) string {
	rules := baseRules
	if k == Commander {
		rules = append(append([]string{}, baseRules...), commanderRules...)
	}

	var b strings.Builder
	b.WriteString(roles[k])
	b.WriteString("\n要求：\n")
	for i, r := range rules {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(r)
		b.WriteByte('\n')
	}
	b.WriteString("\n输出JSON结构：\n")
	b.WriteString(Skeleton(k))
	b.WriteString("\n\n股票上下文JSON：\n")
	b.WriteString(contextJSON)

	if k == Commander {
		b.WriteString("\n\n其他Agent输出JSON：\n")
		b.WriteString(dependenciesJSON(deps))
	}
	return b.String()
}

// BuildRepairPrompt asks the model to restate raw as a conforming object.
func BuildRepairPrompt(k Kind, raw string) string {
	return "你刚才的输出不是严格JSON。请只输出一个JSON对象，不要任何解释、Markdown或代码块。\n" +
		"必须严格符合以下JSON结构，字段必须完整，没有数据用null或空数组。\n\n" +
		"JSON结构：\n" + Skeleton(k) + "\n\n" +
		"原始输出：\n" + raw
}

type dependencyInput struct {
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Data      any    `json:"data,omitempty"`
}

func dependenciesJSON(deps []types.AgentResult) string {
	inputs := make([]dependencyInput, 0, len(deps))
	for _, d := range deps {
		in := dependencyInput{
			AgentID:   d.AgentID,
			AgentName: d.AgentName,
			Success:   d.Success,
			Error:     d.Error,
		}
		if d.Data != nil {
			in.Data = *d.Data
		}
		inputs = append(inputs, in)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(inputs); err != nil {
		return "[]"
	}
	return strings.TrimSpace(buf.String())
}
