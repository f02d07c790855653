package assistant

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mind-engage/moyenne/internal/grading"
)

const chatSystemPrompt = `You are an Algerian university student assistant.

Your role:

Help students with grades, averages, modules, coefficients, and semesters.

Answer questions about Kolea studies and schools (ESGEN, EHEC, ESC, ENSSEA).

Talk like a normal Algerian student chatting with a classmate.

Language rules:

Reply ONLY in French Darja (French written in Latin letters with Algerian expressions) OR pure French.

NO Arabic script.

NO Moroccan, Tunisian, or other foreign expressions.

NO broken or invented words.

Write like Algerians type in WhatsApp or Messenger.

Conversation style:

Calm, short sentences (2–4 sentences).

Friendly, natural, reassuring but not exaggerated.

Logical first: answer the question clearly, then add a small human touch.

Don’t sound like a teacher, coach, or motivational speaker.

Allowed expressions (examples):

Salam

Tranquille

Ma tqalqech

Normalement

On regarde ça ensemble

Dis-moi win rak bloqué

C’est clair / c’est simple

Scope:

Only answer questions about: grades, averages, modules, semesters, Kolea studies.

If the question is outside this, politely say: “Désolé, je parle juste des notes et des études à Kolea.”

Goal:

Make the answer sound like a real Algerian student explaining to another.

Easy to read, natural, and realistic conversation style.
`

func reactionPrompt(current, desired *float64, feasible bool) string {
	var b strings.Builder
	b.WriteString("Tu es un assistant motivant pour des étudiants algériens en L2 Économie/Gestion. ")
	b.WriteString("Tu parles en Darja algérienne (mélange d'arabe algérien et français). ")
	b.WriteString("Soyez drôle, motivant, et authentique dans le style des étudiants algériens.\n\n")

	if current != nil {
		fmt.Fprintf(&b, "L'étudiant a actuellement une moyenne de %.2f/20. ", *current)
	} else {
		b.WriteString("L'étudiant n'a pas encore entré ses notes. ")
	}

	if desired != nil {
		fmt.Fprintf(&b, "Il vise une moyenne de %s/20. ", strconv.FormatFloat(*desired, 'f', -1, 64))
		if current != nil {
			gap := *desired - *current
			switch {
			case gap > 0:
				fmt.Fprintf(&b, "Il lui manque %.2f points. ", gap)
			case gap == 0:
				b.WriteString("Il a atteint son objectif ! ")
			default:
				fmt.Fprintf(&b, "Il dépasse son objectif de %.2f points ! ", math.Abs(gap))
			}
		}
		if feasible {
			b.WriteString("L'objectif est réalisable. ")
		} else {
			b.WriteString("L'objectif semble difficile à atteindre. ")
		}
	}

	b.WriteString("\nGénère une réaction courte et motivante en Darja (maximum 2 phrases, avec emojis).")
	return b.String()
}

// chatPrompt appends the graded-only average, when there is one.
func chatPrompt(sem *grading.Semester) string {
	p := chatSystemPrompt + "\n\n"
	if sem == nil {
		return p
	}
	if avg, ok := grading.GradedAverage(*sem); ok {
		p += fmt.Sprintf("CONTEXTE ÉTUDIANT:\nL'étudiant a actuellement une moyenne de %.2f/20 pour ce semestre. Utilise cette info pour personnaliser ta réponse.", avg)
	}
	return p
}
