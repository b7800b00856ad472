package classifier

// Tier is the label shown for a predicted class.
type Tier string

const (
	TierT1 Tier = "T1 >4.5"
	TierT2 Tier = "T2 between 2.9 and 4.5"
	TierT3 Tier = "T3 less than 2.9"
)

// TierNote explains the three-point scale under every prediction.
const TierNote = "The predicted value tier is determined based on a three-point scale, ranging from highest to lowest. " +
	"The tiers are categorized as follows:\n\n" +
	"• **T1**: Greater than 4.5 TVTs  \n" +
	"• **T2**: Between 2.9 and 4.5 TVTs  \n" +
	"• **T3**: Less than 2.9 TVTs  \n"

// TierScale lists the tiers and their ranges for display.
var TierScale = []struct {
	Name  string
	Range string
}{
	{"T1", "Greater than 4.5 TVTs"},
	{"T2", "Between 2.9 and 4.5 TVTs"},
	{"T3", "Less than 2.9 TVTs"},
}

// CategorizeTier maps a class label to its tier. Anything other than 0 or 1
// falls into T3.
func CategorizeTier(class int) Tier {
	switch class {
	case 0:
		return TierT1
	case 1:
		return TierT2
	default:
		return TierT3
	}
}
