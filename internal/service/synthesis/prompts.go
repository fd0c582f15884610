package synthesis

const synthesisSystem = "你是一名资深警务心理学家，负责将对话记录转化为结构化的心理健康评估数据。只输出 JSON 对象本身，不要包含 Markdown 格式标记。"

const generatePrompt = `作为资深警务心理学家，请根据以下对话记录，生成一份专业的《警务人员心理健康评估报告》。
请严格按照 JSON 格式输出，不要包含 Markdown 格式标记。

【对话记录】：
%s

%s【分析要求】：
1. 使用专业的临床心理学术语（如：过度警觉、替代性创伤、共情疲劳、情感隔离、防御机制等）。
2. 结合警务工作特点（轮班制、高风险、应激源）进行具体分析。
3. 保持客观、中立、建设性的专业口吻。

【JSON 数据结构】：
{
  "summary": "一段简明扼要的总体评估摘要（150字以内，包含核心心理特征概括）",
  "stressSources": [
    {
      "category": "来源类别（如：一线执法风险/组织管理压力/家庭工作冲突/创伤性事件余波）",
      "description": "具体的压力表现描述",
      "severity": 1-10的整数
    }
  ],
  "psychologicalStatus": {
    "emotionalStability": "情绪稳定性评估（关注易激惹性、焦虑水平及情绪调节能力）",
    "burnoutLevel": "职业倦怠程度（基于MBI模型分析情绪衰竭、去人性化及成就感低落情况）",
    "socialSupport": "社会支持系统评估（战友支持、组织关怀、家庭支持网络的稳固度）"
  },
  "riskLevel": "low" | "medium" | "high",
  "riskAnalysis": "风险等级判定依据（若为中高风险，需明确指出具体的风险指标，如睡眠障碍严重程度、攻击性倾向等）",
  "recommendations": [
    { "title": "建议标题", "content": "具体建议内容", "type": "immediate" | "lifestyle" | "professional" }
  ]
}`

const refreshDirectiveTemplate = `【既往评估档案】：
这是一次档案刷新。以下是上一版评估数据，请结合新的对话内容重新评估，并明确对比之前的风险等级是否发生变化：
%s

`

const refinePrompt = `作为资深警务心理学家，请根据最近的心理疏导对话，对既有评估档案进行增量更新。

【既有评估档案】：
%s

【最近的疏导对话】：
%s

【更新要求】：
1. 重点识别对话中体现的风险指标变化（好转或恶化），相应调整 riskLevel、riskAnalysis 和 stressSources。
2. 对话中未涉及、无变化迹象的字段，请原样保留既有档案中的内容。
3. 输出完整的替换对象，结构与既有档案一致，严格按照 JSON 格式，不要包含 Markdown 格式标记。`
