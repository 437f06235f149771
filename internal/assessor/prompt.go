package assessor

// BuildRiskPrompt returns the risk-check prompt for a post. hasImage tells the
// model whether an image block follows the text.
func BuildRiskPrompt(text string, hasImage bool) string {
	subject := `the "text"`
	if hasImage {
		subject = `the "image" and the "text"`
	}
	if text == "" {
		text = "(no text)"
	}
	return `Below are ` + subject + ` of a post about to be published on social media.
On the first line output only 'yes' if the post carries risk, or 'no' if it does not.
From the second line on, list each risk as a bullet in Japanese, explaining why it is a risk and how to avoid it.
Only report risks from this checklist:
1. Personal information and identification
- Can the poster be identified from places, uniforms, name tags, buildings or room backgrounds in the image?
- Do place names, workplaces, schools, relationships or activity history in the text reveal where the poster lives or their routine?
- Is the privacy of other people in the post (especially minors, family, friends) exposed?
- Are fingertips visible clearly enough for fingerprints to be copied?
2. Misreading, backlash and misunderstanding
- Is the wording ambiguous or easy to misread?
- Does the combination of image and text create a meaning other than the intended one?
- Could the post feel offensive, discriminatory or aggressive to some readers?
- Could humour, irony or satire fail to land and trigger backlash?
- Could the timing or context make the post seem tone-deaf or inappropriate?
Post text: ` + text
}
