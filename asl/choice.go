package asl

import (
	"regexp"
	"strings"
)

// evalChoiceRule reports whether rule matches, given the state document and
// context object (§4.2). A compound rule (And/Or/Not) recurses; a leaf rule
// evaluates its single comparator against Variable.
func evalChoiceRule(rule ChoiceRule, doc, context Value) (bool, error) {
	if len(rule.And) > 0 {
		for _, sub := range rule.And {
			ok, err := evalChoiceRule(sub, doc, context)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	}
	if len(rule.Or) > 0 {
		for _, sub := range rule.Or {
			ok, err := evalChoiceRule(sub, doc, context)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	if rule.Not != nil {
		ok, err := evalChoiceRule(*rule.Not, doc, context)
		if err != nil {
			return false, err
		}
		return !ok, nil
	}
	return evalComparator(rule, doc, context)
}

// evalComparator evaluates a single leaf rule's comparator. Per §4.2: if the
// left-hand path is missing, every comparator is false except IsPresent
// (which reports the absence) and IsNull (which treats missing as true,
// matching the source's leniency for "nothing there").
func evalComparator(rule ChoiceRule, doc, context Value) (bool, error) {
	left, err := pathRead(rule.Variable, doc, context)
	if err != nil {
		return false, err
	}
	missing := left.IsMissing()

	resolveRHS := func(path string) (Value, error) { return mustPathRead(path, doc, context) }

	switch {
	case rule.IsPresent != nil:
		return !missing == *rule.IsPresent, nil
	case rule.IsNull != nil:
		if missing {
			return *rule.IsNull, nil
		}
		return left.IsNull() == *rule.IsNull, nil
	}

	if missing {
		return false, nil
	}

	switch {
	case rule.IsString != nil:
		return left.IsString() == *rule.IsString, nil
	case rule.IsNumeric != nil:
		return left.IsNumber() == *rule.IsNumeric, nil
	case rule.IsBoolean != nil:
		return left.IsBool() == *rule.IsBoolean, nil
	case rule.IsTimestamp != nil:
		return isTimestampString(left) == *rule.IsTimestamp, nil

	case rule.StringEquals != nil:
		return left.IsString() && left.Str() == *rule.StringEquals, nil
	case rule.StringEqualsPath != nil:
		rhs, err := resolveRHS(*rule.StringEqualsPath)
		if err != nil {
			return false, err
		}
		return left.IsString() && rhs.IsString() && left.Str() == rhs.Str(), nil
	case rule.StringLessThan != nil:
		return left.IsString() && left.Str() < *rule.StringLessThan, nil
	case rule.StringLessThanPath != nil:
		rhs, err := resolveRHS(*rule.StringLessThanPath)
		if err != nil {
			return false, err
		}
		return left.IsString() && rhs.IsString() && left.Str() < rhs.Str(), nil
	case rule.StringLessThanEquals != nil:
		return left.IsString() && left.Str() <= *rule.StringLessThanEquals, nil
	case rule.StringLessThanEqualsPath != nil:
		rhs, err := resolveRHS(*rule.StringLessThanEqualsPath)
		if err != nil {
			return false, err
		}
		return left.IsString() && rhs.IsString() && left.Str() <= rhs.Str(), nil
	case rule.StringGreaterThan != nil:
		return left.IsString() && left.Str() > *rule.StringGreaterThan, nil
	case rule.StringGreaterThanPath != nil:
		rhs, err := resolveRHS(*rule.StringGreaterThanPath)
		if err != nil {
			return false, err
		}
		return left.IsString() && rhs.IsString() && left.Str() > rhs.Str(), nil
	case rule.StringGreaterThanEquals != nil:
		return left.IsString() && left.Str() >= *rule.StringGreaterThanEquals, nil
	case rule.StringGreaterThanEqualsPath != nil:
		rhs, err := resolveRHS(*rule.StringGreaterThanEqualsPath)
		if err != nil {
			return false, err
		}
		return left.IsString() && rhs.IsString() && left.Str() >= rhs.Str(), nil
	case rule.StringMatches != nil:
		return left.IsString() && globMatch(*rule.StringMatches, left.Str()), nil

	case rule.NumericEquals != nil:
		return left.IsNumber() && left.Float64() == *rule.NumericEquals, nil
	case rule.NumericEqualsPath != nil:
		rhs, err := resolveRHS(*rule.NumericEqualsPath)
		if err != nil {
			return false, err
		}
		return left.IsNumber() && rhs.IsNumber() && left.Float64() == rhs.Float64(), nil
	case rule.NumericLessThan != nil:
		return left.IsNumber() && left.Float64() < *rule.NumericLessThan, nil
	case rule.NumericLessThanPath != nil:
		rhs, err := resolveRHS(*rule.NumericLessThanPath)
		if err != nil {
			return false, err
		}
		return left.IsNumber() && rhs.IsNumber() && left.Float64() < rhs.Float64(), nil
	case rule.NumericLessThanEquals != nil:
		return left.IsNumber() && left.Float64() <= *rule.NumericLessThanEquals, nil
	case rule.NumericLessThanEqualsPath != nil:
		rhs, err := resolveRHS(*rule.NumericLessThanEqualsPath)
		if err != nil {
			return false, err
		}
		return left.IsNumber() && rhs.IsNumber() && left.Float64() <= rhs.Float64(), nil
	case rule.NumericGreaterThan != nil:
		return left.IsNumber() && left.Float64() > *rule.NumericGreaterThan, nil
	case rule.NumericGreaterThanPath != nil:
		rhs, err := resolveRHS(*rule.NumericGreaterThanPath)
		if err != nil {
			return false, err
		}
		return left.IsNumber() && rhs.IsNumber() && left.Float64() > rhs.Float64(), nil
	case rule.NumericGreaterThanEquals != nil:
		return left.IsNumber() && left.Float64() >= *rule.NumericGreaterThanEquals, nil
	case rule.NumericGreaterThanEqualsPath != nil:
		rhs, err := resolveRHS(*rule.NumericGreaterThanEqualsPath)
		if err != nil {
			return false, err
		}
		return left.IsNumber() && rhs.IsNumber() && left.Float64() >= rhs.Float64(), nil

	case rule.BooleanEquals != nil:
		return left.IsBool() && left.BoolValue() == *rule.BooleanEquals, nil
	case rule.BooleanEqualsPath != nil:
		rhs, err := resolveRHS(*rule.BooleanEqualsPath)
		if err != nil {
			return false, err
		}
		return left.IsBool() && rhs.IsBool() && left.BoolValue() == rhs.BoolValue(), nil
	}

	return false, &EngineError{Code: CodeIntrinsicFailure, Message: "Choice rule has no recognized comparator"}
}

// isTimestampString reports whether v is a string parseable as an RFC 3339
// timestamp (the only format IsTimestamp is required to recognize).
func isTimestampString(v Value) bool {
	if !v.IsString() {
		return false
	}
	_, err := parseTimestamp(v.Str())
	return err == nil
}

// globMatch anchors pattern as ^...$ and translates '*' (any run) and '?'
// (single char); all other characters match literally (§4.2).
func globMatch(pattern, s string) bool {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	re, err := regexp.Compile(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

// evalChoices evaluates rules top-to-bottom and returns the Next of the
// first match, or defaultNext if none match and a default was declared
// (§4.2). ok is false when neither a rule matched nor a default exists.
func evalChoices(rules []ChoiceRule, defaultNext string, hasDefault bool, doc, context Value) (next string, ok bool, err error) {
	for _, rule := range rules {
		matched, err := evalChoiceRule(rule, doc, context)
		if err != nil {
			return "", false, err
		}
		if matched {
			return rule.Next, true, nil
		}
	}
	if hasDefault {
		return defaultNext, true, nil
	}
	return "", false, nil
}
