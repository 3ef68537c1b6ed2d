package nutrition

import "fmt"

const systemPrompt = "Ты эксперт по питанию и анализу еды. Твоя задача - анализировать приём пищи и определять его питательную ценность."

const responseSchema = `{"name": "Название блюда/приёма", "calories": число, "protein": число, "fats": число, "carbs": число, "healthScore": число, "commentary": "краткий комментарий о полезности еды"}`

func textPrompt(description string) string {
	return fmt.Sprintf("Проанализируй этот приём пищи: %s. Определи примерное количество калорий, белков (г), жиров (г), углеводов (г) и дай оценку качества питания от 0 до 100, где 100 - самое здоровое. Верни только JSON без пояснений: %s", description, responseSchema)
}

func photoPrompt() string {
	return "Проанализируй эту фотографию еды. Определи примерное количество калорий, белков (г), жиров (г), углеводов (г) и дай оценку качества питания от 0 до 100, где 100 - самое здоровое. Верни только JSON без пояснений: " + responseSchema
}
