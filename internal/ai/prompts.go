package ai

import (
	"fmt"
	"strings"
)

const SystemInstruction = `אתה עוזר לימודים אינטליגנטי ומקצועי בעברית.
תפקידך לענות על שאלות המשתמש אך ורק על סמך חומרי הלימוד שסופקו לך.

הנחיות קריטיות למבנה התשובה:
1. סגנון כתיבה: כתוב בצורה זורמת, טבעית ואינטליגנטית. הימנע לחלוטין ממיספור רובוטי כמו "### 1" או "סעיף 1". השתמש בכותרות מודגשות במידת הצורך ובפסקאות קריאות.
2. מתמטיקה ונוסחאות: כל נוסחה או ביטוי מתמטי חייבים להיכתב בתוך סימני דולר ($...$). כל הביטויים חייבים להיות בשורה אחת.
3. הפניות: חובה להוסיף הפניה מדויקת לכל טענה. הפורמט חייב להיות: [שם_הקובץ.סיומת, עמ' X]. אם אין מספר עמוד, ציין רק את שם הקובץ.
4. שפה: עברית רהוטה בלבד.
5. בדיקת סיום: וודא שהתשובה מלאה, מסתיימת בנקודה, ואינה נקטעת באמצע.`

const RefinerPrompt = `תפקידך הוא "עורך לשוני" עבור תשובה של בינה מלאכותית בעברית.
קרא את הטקסט הבא ושפר אותו לפי הכללים:
1. הפוך את הניסוח ליותר "אנושי" ופחות "רובוטי".
2. הסר רשימות ממוספרות כבדות (כמו 1, 2, 3) והחלף אותן בזרימה טקסטואלית או נקודות (bullets) במידה וזה נדרש.
3. וודא שכל הפניות הקבצים בסוגריים מרובעים נשמרות בדיוק כפי שהן.
4. וודא שכל הביטויים המתמטיים ($...$) נשמרים.
5. החזר אך ורק את הטקסט המשופר.

הטקסט לעריכה:
`

func TitlePrompt(question string) string {
	return fmt.Sprintf(`צור כותרת קצרה מאוד (עד 4 מילים) בעברית עבור השאלה: "%s". אל תשתמש בסימני כוכביות או הדגשה בכלל.`, question)
}

// MemoryEntry summarizes one sibling conversation.
type MemoryEntry struct {
	Title string
	Tail  string
}

// WithMemory appends a digest of sibling conversations to system.
func WithMemory(system string, entries []MemoryEntry) string {
	if len(entries) == 0 {
		return system
	}
	var sb strings.Builder
	sb.WriteString(system)
	sb.WriteString("\n\nהקשר משיחות קודמות באותו נושא (לעיון בלבד):\n")
	for _, e := range entries {
		sb.WriteString("- ")
		sb.WriteString(e.Title)
		if e.Tail != "" {
			sb.WriteString(": ")
			sb.WriteString(e.Tail)
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Tail returns at most n runes from the end of text.
func Tail(text string, n int) string {
	runes := []rune(strings.TrimSpace(text))
	if n <= 0 || len(runes) <= n {
		return string(runes)
	}
	return "…" + string(runes[len(runes)-n:])
}
