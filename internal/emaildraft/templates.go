package emaildraft

import "profreach-engine/pkg/domain"

// template holds the deterministic skeleton for one outreach goal. Body
// paragraphs are ordered; length drops or keeps the optional ones.
type template struct {
	subject string
	// core paragraphs always included
	core []string
	// extras included at medium (first) and long (all) lengths
	extras []string
	close  string
}

var templates = map[string]template{
	string(domain.RoleSummerIntern): {
		subject: "Inquiry regarding Summer Internship opportunities - {name}",
		core: []string{
			"My name is [My Name], and I am a [Year] student at [My University] majoring in [Major]. I have been following your work on {interest_1} and {interest_2}, and I am very interested in your research group.",
			"I am writing to inquire if there are any openings for summer research internships in your lab. I have attached my CV and transcript for your review.",
		},
		extras: []string{
			"I was particularly fascinated by your recent work on [Mention a Paper if possible], and I would love to contribute to similar projects.",
			"Over the past year I have built up experience with [Relevant Skills/Tools], which I believe would let me ramp up quickly on your group's projects.",
		},
		close: "Thank you for your time and consideration.",
	},
	string(domain.RolePhD): {
		subject: "Prospective Ph.D. Student Fall 202X - {name}",
		core: []string{
			"I am writing to express my strong interest in pursuing a Ph.D. under your supervision at {affiliation}, starting in Fall 202X.",
			"Your research in {interest_1} aligns perfectly with my academic interests. I am specifically drawn to your work on {interest_2}.",
		},
		extras: []string{
			"I am currently a student at [My University], where I have been working on [My Research Topic]. I successfully [Achievement].",
			"I would appreciate the opportunity to discuss your research and potential Ph.D. opportunities in your lab.",
		},
		close: "Thank you for considering my application.",
	},
	string(domain.RolePostdoc): {
		subject: "Postdoctoral opportunity inquiry - {name}",
		core: []string{
			"I am completing my Ph.D. at [My University] under [Advisor], working on [Thesis Topic], and I am exploring postdoctoral positions for [Start Term].",
			"Your group's work on {interest_1} closely matches the direction I want to take next, and I believe my background in {interest_2} would be a strong fit.",
		},
		extras: []string{
			"My dissertation contributes [Key Result]; I have also published in [Venues] and would be glad to share my research statement.",
			"If you anticipate openings or relevant fellowship opportunities in your lab, I would welcome the chance to discuss them.",
		},
		close: "Thank you for your time.",
	},
	string(domain.RoleRA): {
		subject: "Research Assistant position inquiry - {name}",
		core: []string{
			"I am a student at [My University] with a strong interest in {interest_1}, and I am writing to ask about research assistant openings in your group.",
			"I have experience with [Relevant Skills/Tools] and can commit [Hours] per week during the semester.",
		},
		extras: []string{
			"Your recent work on {interest_2} is exactly the kind of project I hope to contribute to, even in a supporting role.",
			"I have attached my CV; I am happy to start with any task that helps the group.",
		},
		close: "Thank you for considering my request.",
	},
}

// tone-specific framing around the shared body
type toneParts struct {
	opening string
	signoff string
}

var tones = map[string]toneParts{
	domain.ToneFormal: {
		opening: "Dear Professor {lastname},\n\nI hope this email finds you well.",
		signoff: "Sincerely,\n[My Name]\n[My Website/Portfolio]",
	},
	domain.ToneEnthusiastic: {
		opening: "Dear Professor {lastname},\n\nI hope you are having a great week. I have been looking forward to writing to you for some time.",
		signoff: "With great enthusiasm,\n[My Name]\n[My Website/Portfolio]",
	},
	domain.ToneDirect: {
		opening: "Dear Professor {lastname},",
		signoff: "Best regards,\n[My Name]",
	},
}
