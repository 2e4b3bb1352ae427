package heuristics

import (
	"github.com/JakeFAU/dvsvc-crawler/internal/scoring"
)

// Page scorer tuning.
const (
	PagePercentile90    = 30
	PageWordCountFactor = -0.01
)

var (
	kw   = scoring.NewKeywordToken
	set  = scoring.Set
	setN = scoring.SetN
)

// PagePredicates returns the page predicates in evaluation order. The
// charity-register predicate leads the list when names are supplied.
// quickExit may be nil to use the default detector.
func PagePredicates(charityNames []string, quickExit *scoring.QuickExit) []scoring.Predicate {
	if quickExit == nil {
		quickExit = scoring.NewQuickExit(scoring.CountGated, scoring.DefaultNecessaryMatches)
	}
	var out []scoring.Predicate
	if len(charityNames) > 0 {
		out = append(out, scoring.NewKeywordPhrase(w(3).Scale(1.2).As("SCOT-CHARITY"), set(charityNames...)))
	}
	out = append(out, topicPredicates()...)
	out = append(out, penaltyPredicates()...)
	return append(out,
		scoring.NewStructural(w(10).As("QUICK-EXIT"), quickExit),
		re(w(-15).As("501-3-C"), group(`501\(c\)\(3\)`)),
	)
}

func topicPredicates() []scoring.Predicate {
	return []scoring.Predicate{
		kw(w(10).Scale(1.5).As("DOMESTIC-ABUSE-SERVICE"),
			set("domestic"),
			set("violence", "abuse", "abuser", "assault"),
			set("service", "services", "support", "help", "helpline", "hotline")),
		kw(w(9).Scale(1.3).As("GENDER-ABUSE"),
			set("intimate", "gender"),
			set("partner", "based"),
			set("violence", "abuse")),
		kw(w(8).Scale(1.2).As("SEXUAL-VIOLENCE"),
			set("sexual", "sexually"),
			set("abuse", "abused", "abusive", "assault", "assaulted", "harassment",
				"harassed", "exploitation", "exploited", "violence")),
		kw(w(8).Scale(1.1).As("RAPE"), set("rape", "raped")),
		// British spellings only.
		kw(w(7).As("VICTIM"),
			set("victim", "victims", "victimising", "victimisation", "victimise", "victimised"),
			set("abuse", "violence", "partner")),
		kw(w(4).As("SURVIVOR"),
			set("survive", "survivor", "survivors", "survival", "survived", "surviving"),
			set("abuse", "abusing", "abusive", "violent", "violence", "trauma",
				"relationship", "assistance", "mindfulness")),
		kw(w(5).As("TRAFFICKING"), set("trafficking")),
		// Not "modern slavery": "statement on modern slavery" is boilerplate on commercial sites.
		kw(w(3),
			set("recovery"),
			set("workshop", "workshops", "program", "programs", "programme", "programmes")),
		kw(w(2).As("REFERRAL"), set("referral")),
		kw(w(1).As("HOMELESS"), set("homeless", "homelessness")),
		kw(w(3).As("HOUSING-AID"), set("housing"), set("assistance", "aid")),
		kw(w(2).As("SHELTER"), set("safe"), set("shelter", "shelters")),
		kw(w(4).As("REFUGE"), set("refuge", "refuges")),
		kw(w(2).As("REFUGEE"), set("refugee")),
		kw(w(1).As("SUFFER"), set("suffer", "suffering", "suffers", "suffered")),
		kw(w(5).As("MANDATORY-ARREST-POLICY"), set("mandatory"), set("arrest"), set("policy")),
		kw(w(4).As("POWER"),
			set("power", "powerless", "powerlessness"),
			set("relationship", "partner", "dynamic", "dynamics", "differential")),
		kw(w(4).As("COHABITATION-EFFECT"), set("cohabitation"), set("effect")),
		kw(w(3).As("WOMAN"),
			set("women", "woman"),
			set("help", "helps", "helping", "aid", "aids", "aiding", "assist", "assists", "assisting")),
		kw(w(2).As("NEGLECT"),
			set("neglect", "neglected"),
			set("partner", "adult", "child", "childhood", "children")),
		kw(w(4).As("CRISIS"), set("crisis"), set("intervention", "support")),
		kw(w(2).As("LGBT"), set("lgbt", "lgbtq", "lgbtqi", "lgbtqia", "lgb", "grsm")),
		kw(w(1).As("ADVICE"), set("advisor", "advisors", "advice")),
		kw(w(3).As("OUTREACH"),
			set("outreach"),
			set("program", "programs", "programme", "programmes", "service", "services")),
		kw(w(3).As("EQUALITY-ADVOCATE"), set("equality"), set("advocacy", "advocate", "advocates")),
		kw(w(2).As("POLICE-LIAISON"), set("police"), set("liaison")),
		kw(w(2).As("COURT-SUPPORT"), set("court"), set("support", "supported")),
		kw(w(6).As("ABUSER-INTERVENTION"),
			set("abuser"),
			set("intervention"),
			set("service", "services", "programme", "programmes", "program", "programs")),
		kw(w(2).As("ECONOMIC-EMPOWERMENT"),
			set("economic", "economically", "financial", "financially"),
			set("empower", "empowerment", "empowered")),
		kw(w(1).As("MULTILINGUAL"), set("multilingual"), set("service", "services", "support")),
		kw(w(1).As("CULTURE-SENSITIVE"), set("cultural", "cultures", "culturally"), set("sensitive", "sensitivity")),
		kw(w(2).As("LEGAL"), set("legal"), set("aid", "advice", "advocacy")),
		kw(w(1).As("EMOTIONAL-SUPPORT"), set("emotional"), set("support")),
		kw(w(5).As("COUNSELLING"),
			set("counsel", "counsellor", "counselor", "counsellors", "counselors", "counseling", "counselling"),
			set("abuse", "violence", "trauma", "health", "survivor")),
		kw(w(1).As("THERAPY"), set("therapy", "therapist", "therapists")),
		kw(w(1).As("COMMUNITY"), set("community", "communities")),
		kw(w(4).As("HARASSMENT"), set("harass", "harasses", "harassing", "harassment")),
		kw(w(2).As("SANCTUARY"), set("sanctuary", "sanctuaries")),
		kw(w(3).As("SAFEHOUSE"), set("safehouse", "safehouses")),
		kw(w(3).As("SAFE-ROOM"), set("safe"), set("room", "rooms")),
		kw(w(2).As("HAVEN"), set("coercive"), set("control"), set("support")),
		kw(w(1).As("SAFETY-PLAN"), set("safety", "escape"), set("plan", "planning")),
		kw(w(5).As("COERCIVE-CONTROL"), set("coercive"), set("control"), set("support", "supporting", "supports")),
		kw(w(1).As("VIOLENCE-CYCLE"), set("cycle"), set("violence")),
		kw(w(5).As("POWER-CONTROL-WHEEL"), set("power"), set("control"), set("wheel")),
		kw(w(1).As("SOCIAL-LEARNING-THEORY"), set("social"), set("learning"), set("theory")),
		kw(w(1).As("TRUST"), set("trust", "trusts", "trusting", "trusted")),
		kw(w(3).As("CHARITY"), set("charity"), set("reg", "registration", "number")),
		kw(w(6).As("FORCED-MARRIAGE"),
			set("marriage"),
			set("force", "forced", "trap", "trapped", "coerce", "coercion", "coerced")),
		kw(w(6).As("ABUSIVE-RELATIONSHIP"), set("abusive"), set("marriage", "relationship")),
		kw(w(2).As("DONATION"), set("donate", "donation", "donations", "fundraise", "fundraising")),
		kw(w(5).As("TRAUMA"), set("trauma", "traumatic"), set("recover", "recovery", "recovering", "care")),
		kw(w(2).As("CONFIDENTIAL"), set("confidential", "confidentiality", "confidentially")),
		kw(w(8).As("HELPLINE"), set("helpline", "hotline")),
		kw(w(5).As("PROTECTION-ORDER"), set("protection"), set("order", "orders")),
		kw(w(3).As("EMPOWERMENT"), set("empowerment"), set("program", "programs", "programme", "programmes")),
		kw(w(3).As("PTSD"), set("ptsd")),
		kw(w(1).As("VOLUNTEER"), set("volunteer", "volunteers")),
		kw(w(4).As("STALKING"), set("stalking", "stalker")),
		kw(w(4).As("GENDERED-CRIME"), set("gendered"), set("crime", "violence", "abuse")),
		kw(w(3).As("SYMBOLIC-INTERACTIONISM"), set("symbolic"), set("interactionism")),
		kw(w(2).As("ANONYMOUS-REPORTING"), set("report", "reporting"), set("anonymous", "anonymously")),
		kw(w(5).As("DULUTH"), set("duluth"), set("model")),
		kw(w(4).As("RESTRAINING-ORDER"), set("restraining"), set("order")),
		kw(w(7).As("REPRODUCTIVE-COERCION"),
			set("reproduce", "reproductive"),
			set("coerced", "coerce", "coercing", "coercion")),
	}
}

// penaltyPredicates push down site genres that share vocabulary with support
// services but are almost never relevant.
func penaltyPredicates() []scoring.Predicate {
	return []scoring.Predicate{
		// Many support sites have a news section, so a second set is required.
		kw(w(-10).As("SUB-NEWS"),
			setN(2, "newsroom", "newspaper", "newspapers", "news", "journalist", "columnist",
				"editorial", "editor", "headline", "headlines"),
			setN(2, "weather", "politics", "sport", "breaking", "business", "entertainment",
				"lifestyle", "coverage", "exclusive")),
		kw(w(-10).As("SUB-FORUM"),
			setN(3, "forum", "forums", "board", "boards", "thread", "threads", "featured",
				"trending", "communities", "community", "popular", "modified")),
		kw(w(-10).Scale(0.5).As("SUB-DEV"),
			setN(2, "software", "docs", "devops", "cloud", "api", "sdk", "sdks",
				"documentation", "github", "gitlab", "bitbucket")),
		kw(w(-10).Scale(0.6).As("SUB-COMMERCIAL"),
			setN(2, "shop", "store", "company", "enterprise", "buy", "purchase", "purchases",
				"product", "products", "pricing", "discount", "discounts", "sale", "sales",
				"coupon", "coupons", "promotional")),
		kw(w(-5).Scale(0.7).As("SUB-ACADEMIC"),
			setN(2, "study", "studies", "academic", "academics", "journal", "journals", "thesis",
				"theses", "professor", "lecturer", "scholar", "scholars", "researchgate",
				"academia", "scholarly", "citation", "citations", "jstor", "arxiv", "syllabus")),
	}
}
