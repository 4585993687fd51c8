package bot

// User-facing reply texts.
const (
	msgWelcome = "Hi! Send me an expense in plain text, like \"Spent $12.50 at NTUC with OCBC365\", " +
		"or a photo of a receipt, and I'll record it for you. Use /help for details."

	msgHelp = "Here's what I understand:\n\n" +
		"• Free text: \"Spent $12.50 at NTUC with OCBC365\"\n" +
		"• A photo of a receipt\n" +
		"• /add {\"payee\": \"NTUC\", \"total\": 12.5} to seed an expense by hand\n" +
		"• /add with no payload to start from a blank expense\n" +
		"• /refresh to reload categories and payment methods from the sheet\n\n" +
		"I'll show you what I extracted with buttons to tweak each field before it lands in the ledger."

	msgRedirectPrivate = "Let's do this in a private chat instead. Message me directly and I'll record your expense."

	msgExtractFallback = "I couldn't read an expense out of that. Try something like " +
		"\"Spent $12.50 at NTUC with OCBC365\", or send me a receipt photo."

	msgPhotoDownloadFailed = "I couldn't download that photo. Please try sending it again."

	msgPhotoRateLimited = "The image service is a bit overwhelmed right now. " +
		"Try again in a minute, or type the expense as text instead."

	msgPhotoFailed = "I couldn't read a receipt out of that photo. " +
		"You can type the expense as text instead."

	msgBadPayload = "I couldn't parse that payload. Use JSON like " +
		"{\"payee\": \"NTUC\", \"total\": 12.5, \"category\": \"Groceries\"}."

	msgNotACorrection = "I didn't catch a correction in that. Tap a field button to edit it directly, " +
		"or tell me what to change, like \"the total was 32.50\"."

	msgCancelled = "Cancelled. Nothing was recorded."

	msgRefreshed = "Categories and payment methods will be reloaded from the sheet on the next expense."

	msgRecorded = "Recorded! ✅"
)
