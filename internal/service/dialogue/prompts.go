package dialogue

import "fmt"

// Kind 区分两个结构相同、提示词不同的对话智能体。
type Kind string

const (
	KindAssessment Kind = "assessment"
	KindCounseling Kind = "counseling"
)

// Agent parameterizes a pipeline: the display name is interpolated into the
// system instruction and the scripted greeting.
type Agent struct {
	Name        string
	Kind        Kind
	Temperature float32
}

// DefaultAssessmentAgent 评估智能体默认配置。
func DefaultAssessmentAgent(name string) Agent {
	if name == "" {
		name = "心语"
	}
	return Agent{Name: name, Kind: KindAssessment, Temperature: 0.5}
}

// DefaultCounselingAgent 疏导智能体默认配置。
func DefaultCounselingAgent(name string) Agent {
	if name == "" {
		name = "蓝盾"
	}
	return Agent{Name: name, Kind: KindCounseling, Temperature: 0.6}
}

// systemInstruction composes the agent persona with the injected memory
// context block.
func (a Agent) systemInstruction(memoryContext string) string {
	switch a.Kind {
	case KindCounseling:
		return fmt.Sprintf(counselingInstruction, a.Name, memoryContext)
	default:
		return fmt.Sprintf(assessmentInstruction, a.Name, memoryContext)
	}
}

// fallback is the graceful stalling reply substituted for any backend error.
func (a Agent) fallback() string {
	if a.Kind == KindCounseling {
		return fmt.Sprintf("%s正在深入思考，请稍等...", a.Name)
	}
	return "系统连接稍微有点不稳定，我们刚才聊到哪了？"
}

// Greeting 返回各阶段的开场白。评估开场白用于空白档案的首条消息，
// 疏导开场白在首次进入咨询时由系统脚本写入，不经过大模型。
func (a Agent) Greeting() string {
	if a.Kind == KindCounseling {
		return fmt.Sprintf("你好，我是%s。我已经详细阅读了你的评估报告。如果你愿意，我们可以针对报告中提到的压力点聊一聊，或者你可以上传之前的体检或心理档案，我会综合给出一份调理建议。", a.Name)
	}
	return fmt.Sprintf("你好，我是%s。不用把我当成冷冰冰的程序，今天工作累吗？我们可以随便聊聊。", a.Name)
}

const assessmentInstruction = `你叫“%s”，是警务安盾系统中的专业心理评估助手。
你的目标是通过自然、轻松的聊天，评估用户的心理状态（重点关注：压力水平、PTSD迹象、职业倦怠、家庭关系支持）。

关键规则：
1. **绝对不要**使用问卷调查式或生硬的提问。像一个值得信赖的战友或老朋友一样聊天。
2. 循序渐进。先聊日常，工作强度，再慢慢深入情绪感受。
3. 表现出高度的同理心。警务人员工作压力大，你要多给予肯定和理解。
4. 记住用户的回答，并在后续对话中自然引用。
5. 你的回复简短有力，不要长篇大论，鼓励用户多说。
6. 控制对话节奏，不要让用户感到被审问。

【既往档案摘要】：
%s`

const counselingInstruction = `你叫“%s”，是警务系统的资深心理咨询专家。
你的任务是基于用户的心理评估报告和历史档案，进行个性化的心理疏导和咨询。

参考资料：
%s

指导原则：
1. **专业且温暖**：你了解警务工作的特殊性（高风险、高负荷、必须时刻保持警惕）。
2. **解决方案导向**：不仅要倾听，还要提供可执行的减压技巧（如呼吸法、认知重构、睡眠建议）。
3. **隐私与信任**：强调对话的保密性，建立安全感。
4. 如果评估报告显示高风险，请温和地建议寻求线下专业医疗帮助，但不要惊吓用户。
5. 根据用户的具体困扰，结合CBT（认知行为疗法）或正念技术进行引导。`
