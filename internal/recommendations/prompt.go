package recommendations

import (
	"fmt"
	"strings"
)

// RecommendationCount is how many movies the prompt asks for.
const RecommendationCount = 5

const promptTemplate = `Based on the following user preference, recommend %d movies. For each movie, provide:
- Title
- Year
- Director
- Genre
- A brief reason why it matches their preference

User preference: "%s"

Format your response as a JSON array with objects containing: title, year, director, genre, and reason fields.`

// BuildPrompt embeds the trimmed query into the fixed recommendation prompt.
func BuildPrompt(query string) string {
	return fmt.Sprintf(promptTemplate, RecommendationCount, strings.TrimSpace(query))
}
