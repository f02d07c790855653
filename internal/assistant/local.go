package assistant

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/mind-engage/moyenne/internal/grading"
)

// Reaction sets, Algerian Darja.
var (
	reactVeryLow = []string{
		"راك طايح شوية بصح مازال الوقت، شد روحك 💪",
		"واش راك رايح يا خويا؟ لازم تخدم شوية بش تحسن الوضعية 😅",
		"راك في الخطر ولاكن ما زال في الأمل، شد البال وقوم خدمة 📚",
		"ما تحبسش، كل واحد يمر بهادك، ابدا تخدم من دلوك وكل شيء غادي يتحسن ✨",
	}
	reactLow = []string{
		"راك في النص، شوية خدمة وتطلعها إن شاء الله 😌",
		"قريبين من المطلوب، شوية صبر وتعملها بإذن الله 🤝",
		"راك على الطريق الصح، كمل بهاد الطريقة وواصل 💯",
		"ما بأس، شوية جهد إضافي وغادي تطلعها، توكل على الله 🎯",
	}
	reactMedium = []string{
		"راك كيما يجب، ما زال فيك تزيدها شوية وتطلعها أحسن 🚀",
		"ماشي وحش، بصح فيك تزود الطلعة شوية، شد روحك 📈",
		"قريب من الهدف، شوية جهد وتطلعها بزاف ✊",
	}
	reactGood = []string{
		"واش هذا يا وحش 🔥 هكذا تبان الخدمة الصح",
		"راك نجم يا خويا! هكذا يلزمو الطلاب 💎",
		"برافو عليك! راك خدمتي صح ونتا واضح 📊",
		"هذا المستوى المطلوب! راك ماشي في الطريق الصح ⭐",
	}
	reactExcellent = []string{
		"إيش هذا المستوى الفوقاني! راك بطل حقيقي 🏆",
		"واش هذا الطالب الممتاز! هكذا تبان التميز 🌟",
		"راك فوق كل التوقعات! برافو برافو برافو 🎉",
	}
	reactImpossible = []string{
		"هاد الهدف صعب شوية، بصح جرب تقرب منه قدر المستطاع 🤔",
		"واش راك تبي تشدها؟ هاد الهدف كبير شوية بصح ما تستسلمش 😤",
		"راك طامع بزاف! جرب تزيد من الخدمة وتوصل لقريب من الهدف 💪",
	}
	reactAchievable = []string{
		"هاد الهدف ممكن! شد روحك وقوم خدمة شوية وتوصل 🎯",
		"ماشي بعيد، شوية جهد إضافي وتطلعها إن شاء الله ✨",
		"راك قريب، جرب تخدم شوية أكثر وتوصل للهدف 📚",
	}
)

const (
	reactFarGoal    = "هاد الهدف بعيد شوية، بصح كل شيء ممكن بالعمل الشاق 💪"
	reactCloseGoal  = "قريبين بزاف! شوية جهد إضافي وتطلعها إن شاء الله 🎯"
	reactGoalHit    = "راك وصلت الهدف! جرب تزيدها شوية وتطلعها أحسن 🔥"
	reactStartInput = "ابدأ تدخل النقاط وتحسب النتيجة مباشرة 📊"
)

// Local answers from the built-in message sets. Identical inputs always give
// identical text.
type Local struct{}

func (Local) Reaction(_ context.Context, current, desired *float64, feasible bool) string {
	key := reactionKey(current, desired, feasible)
	if desired != nil {
		if !feasible {
			return pick(reactImpossible, key)
		}
		if current == nil {
			return pick(reactAchievable, key)
		}
		gap := *desired - *current
		switch {
		case gap > 3:
			return reactFarGoal
		case gap > 1:
			return pick(reactAchievable, key)
		case gap > 0:
			return reactCloseGoal
		default:
			return reactGoalHit
		}
	}

	if current == nil {
		return reactStartInput
	}
	switch avg := *current; {
	case avg < 10:
		return pick(reactVeryLow, key)
	case avg < 12:
		return pick(reactLow, key)
	case avg < 14:
		return pick(reactMedium, key)
	case avg < 16:
		return pick(reactGood, key)
	default:
		return pick(reactExcellent, key)
	}
}

func (Local) Chat(_ context.Context, _ string, _ []Message, sem *grading.Semester) string {
	reply := "Salam! Le chat n'est pas disponible pour le moment, mais tu peux toujours calculer ta moyenne et tes objectifs ici."
	if sem != nil {
		if avg, ok := grading.GradedAverage(*sem); ok {
			reply += fmt.Sprintf(" Pour l'instant ta moyenne est de %.2f/20.", avg)
		}
	}
	return reply
}

// reactionKey renders the inputs at display precision. It drives both the
// local pick and the reaction cache key.
func reactionKey(current, desired *float64, feasible bool) string {
	return fmt.Sprintf("%s|%s|%t", fmtAvg(current), fmtAvg(desired), feasible)
}

func fmtAvg(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func pick(set []string, key string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return set[h.Sum32()%uint32(len(set))]
}
