package gemini

import (
	"fmt"

	"github.com/foomo/travelguide-mcp/service/vo"
)

const guideSystemInstruction = `
You are an expert travel guide for Bangladesh.
When asked about a location, provide a comprehensive structured guide in Markdown format.
Focus on:
1. **Overview**: Brief engaging summary.
2. **Getting There**: Modes of transport (Bus, Train, Air) from Dhaka, costs in BDT, and duration.
3. **Where to Stay**: Recommended areas and price ranges (Budget, Mid-range, Luxury).
4. **Best Foods**: Specific local dishes to try and famous restaurants.
5. **Safety & Scams**: Specific warnings for tourists, common scams, and safety level.
6. **Dos and Don'ts**: Cultural norms.
7. **Best Time to Visit**: Weather and season advice.
8. **Budget**: Estimated daily cost.

Use bold headers (##). Keep the tone helpful, safe, and informative.
`

const plannerSystemInstruction = "You are an intelligent travel planner for Bangladesh. Suggest the best possible trip based on user constraints."

const chatSystemInstruction = "You are a helpful travel assistant for Bangladesh. You are knowledgeable about routes, safety, costs, and culture. Think deeply before answering complex queries about itineraries or safety."

const (
	guideFallback = "Sorry, I couldn't generate a guide for this location."
	planFallback  = "I couldn't find a perfect match, but I recommend exploring Cox's Bazar or Sylhet as general safe options."

	planLocationName = "Your Personalized Trip Plan"
)

func guidePrompt(location string) string {
	return fmt.Sprintf("Generate a detailed travel guide for %s, Bangladesh. Include specific details about current transport costs and safety situation.", location)
}

func planPrompt(prefs vo.TravelPreferences) string {
	return fmt.Sprintf(`
User Preferences:
- Budget: %[1]s
- Mood: %[2]s
- Duration: %[3]s days
- Favorite Activities: %[4]s

Task:
1. Analyze different travel destinations in Bangladesh that fit these criteria.
2. Compare the top 2-3 options briefly in your mind (thinking).
3. Select the SINGLE BEST destination (or a combined itinerary if close by) that matches perfectly.
4. Create a detailed recommendation response in Markdown.

Response Structure:
- **Top Pick**: The Name of the Place.
- **Why This Choice**: Explain why it fits their mood, budget, and activities.
- **Suggested Itinerary**: A day-by-day breakdown for %[3]s days.
- **Estimated Cost Breakdown**: Transport, Food, Accommodation totals.
- **Pro Tips**: Specific advice for this trip.

Use the thinking model to ensure the recommendation is logically sound and the itinerary is realistic.
`, prefs.Budget, prefs.Mood, prefs.Duration, prefs.Activities)
}
