package schema

// Well-known attribute names used throughout the core.
const (
	// AttrObjectClass lists the classes an entry belongs to.
	AttrObjectClass = "objectClass"
	// AttrAliasedObjectName is the target of an alias entry.
	AttrAliasedObjectName = "aliasedObjectName"
	// AttrCreateTimestamp is the creation timestamp of an entry.
	AttrCreateTimestamp = "createTimestamp"
	// AttrModifyTimestamp is the last modification timestamp of an entry.
	AttrModifyTimestamp = "modifyTimestamp"
	// AttrCreatorsName is the DN of the entry creator.
	AttrCreatorsName = "creatorsName"
	// AttrModifiersName is the DN of the last modifier.
	AttrModifiersName = "modifiersName"
	// AttrEntryUUID is the stable identifier of the entry (RFC 4530).
	AttrEntryUUID = "entryUUID"
	// AttrEntryDN is the DN of the entry itself.
	AttrEntryDN = "entryDN"
	// AttrSubschemaSubentry is the DN of the applicable schema subentry.
	AttrSubschemaSubentry = "subschemaSubentry"
	// AttrHasSubordinates indicates whether the entry has children.
	AttrHasSubordinates = "hasSubordinates"
	// AttrNumSubordinates is the count of immediate children.
	AttrNumSubordinates = "numSubordinates"
	// AttrNamingContexts lists the suffixes served by the directory.
	AttrNamingContexts = "namingContexts"
	// AttrSupportedControl lists the control OIDs the directory recognizes.
	AttrSupportedControl = "supportedControl"
	// AttrSubtreeSpecification selects the region a subentry governs.
	AttrSubtreeSpecification = "subtreeSpecification"
	// AttrCollectiveExclusions suppresses collective attributes on an entry.
	AttrCollectiveExclusions = "collectiveExclusions"
	// AttrAdministrativeRole marks an administrative point.
	AttrAdministrativeRole = "administrativeRole"
	// AttrUserPassword carries simple bind credentials.
	AttrUserPassword = "userPassword"
	// AttrMember lists group member DNs.
	AttrMember = "member"
	// AttrUniqueMember lists unique group member DNs.
	AttrUniqueMember = "uniqueMember"
	// AttrRef carries referral URIs on referral entries.
	AttrRef = "ref"
)

// ExcludeAllCollectiveAttributes is the sentinel value of
// collectiveExclusions that suppresses every collective attribute.
const ExcludeAllCollectiveAttributes = "excludeAllCollectiveAttributes"

// Well-known object class names.
const (
	// ClassTop is the abstract root of every object class chain.
	ClassTop = "top"
	// ClassAlias marks alias entries.
	ClassAlias = "alias"
	// ClassSubentry marks administrative subentries.
	ClassSubentry = "subentry"
	// ClassCollectiveAttributeSubentry marks subentries that supply
	// collective attributes.
	ClassCollectiveAttributeSubentry = "collectiveAttributeSubentry"
	// ClassAccessControlSubentry marks subentries that carry access
	// control information.
	ClassAccessControlSubentry = "accessControlSubentry"
	// ClassExtensibleObject permits any attribute on an entry.
	ClassExtensibleObject = "extensibleObject"
	// ClassReferral marks referral entries.
	ClassReferral = "referral"
)

func mustAdd(err error) {
	if err != nil {
		panic(err)
	}
}

// Default builds and seals the built-in core schema: the syntaxes,
// matching rules, attribute types, and object classes the directory
// needs before any configured extensions are loaded.
func Default() *Registries {
	r := NewRegistries()

	for _, syn := range defaultSyntaxes() {
		mustAdd(r.AddSyntax(syn))
	}
	for _, mr := range defaultMatchingRules() {
		mustAdd(r.AddMatchingRule(mr))
	}
	for _, at := range defaultAttributeTypes() {
		mustAdd(r.AddAttributeType(at))
	}
	for _, oc := range defaultObjectClasses() {
		mustAdd(r.AddObjectClass(oc))
	}

	if err := r.Seal(); err != nil {
		panic(err)
	}
	return r
}

func defaultSyntaxes() []*Syntax {
	return []*Syntax{
		NewSyntax(SyntaxDirectoryString, "Directory String"),
		NewSyntax(SyntaxDN, "DN"),
		NewSyntaxWithValidator(SyntaxInteger, "INTEGER", ValidateInteger),
		NewSyntaxWithValidator(SyntaxBoolean, "Boolean", ValidateBoolean),
		NewSyntax(SyntaxOctetString, "Octet String").Binary(),
		NewSyntaxWithValidator(SyntaxGeneralizedTime, "Generalized Time", ValidateGeneralizedTime),
		NewSyntax(SyntaxOID, "OID"),
		NewSyntaxWithValidator(SyntaxTelephoneNumber, "Telephone Number", ValidateTelephoneNumber),
		NewSyntaxWithValidator(SyntaxIA5String, "IA5 String", ValidateIA5String),
		NewSyntaxWithValidator(SyntaxNumericString, "Numeric String", ValidateNumericString),
		NewSyntax(SyntaxSubtreeSpecification, "Subtree Specification"),
		NewSyntax(SyntaxUUID, "UUID"),
	}
}

func defaultMatchingRules() []*MatchingRule {
	rules := []*MatchingRule{
		NewMatchingRule(MatchObjectIdentifier, "objectIdentifierMatch", NormalizeOID, CompareStrings),
		NewMatchingRule(MatchDistinguishedName, "distinguishedNameMatch", NormalizeCaseIgnore, CompareStrings),
		NewMatchingRule(MatchCaseIgnore, "caseIgnoreMatch", NormalizeCaseIgnore, CompareStrings),
		NewMatchingRule(MatchCaseIgnoreOrdering, "caseIgnoreOrderingMatch", NormalizeCaseIgnore, CompareStrings),
		NewMatchingRule(MatchCaseIgnoreSubstrings, "caseIgnoreSubstringsMatch", NormalizeCaseIgnore, CompareStrings),
		NewMatchingRule(MatchCaseExact, "caseExactMatch", NormalizeCaseExact, CompareStrings),
		NewMatchingRule(MatchCaseExactOrdering, "caseExactOrderingMatch", NormalizeCaseExact, CompareStrings),
		NewMatchingRule(MatchNumericString, "numericStringMatch", NormalizeNumericString, CompareStrings),
		NewMatchingRule(MatchBoolean, "booleanMatch", NormalizeBoolean, CompareStrings),
		NewMatchingRule(MatchInteger, "integerMatch", NormalizeInteger, CompareIntegers),
		NewMatchingRule(MatchIntegerOrdering, "integerOrderingMatch", NormalizeInteger, CompareIntegers),
		NewMatchingRule(MatchOctetString, "octetStringMatch", NormalizeOctetString, CompareStrings),
		NewMatchingRule(MatchGeneralizedTime, "generalizedTimeMatch", NormalizeGeneralizedTime, CompareStrings),
		NewMatchingRule(MatchGeneralizedTimeOrdered, "generalizedTimeOrderingMatch", NormalizeGeneralizedTime, CompareStrings),
		NewMatchingRule(MatchCaseIgnoreIA5, "caseIgnoreIA5Match", NormalizeCaseIgnore, CompareStrings),
	}
	rules[0].Syntax = SyntaxOID
	rules[1].Syntax = SyntaxDN
	return rules
}

func at(oid, name string, build func(*AttributeType)) *AttributeType {
	a := NewAttributeType(oid, name)
	if build != nil {
		build(a)
	}
	return a
}

func defaultAttributeTypes() []*AttributeType {
	caseIgnoreString := func(a *AttributeType) {
		a.Equality = "caseIgnoreMatch"
		a.Substring = "caseIgnoreSubstringsMatch"
		a.Syntax = SyntaxDirectoryString
	}
	dnValued := func(a *AttributeType) {
		a.Equality = "distinguishedNameMatch"
		a.Syntax = SyntaxDN
	}
	operational := func(a *AttributeType) {
		a.Usage = DirectoryOperation
		a.NoUserMod = true
		a.SingleValue = true
	}

	return []*AttributeType{
		at("2.5.4.0", "objectClass", func(a *AttributeType) {
			a.Equality = "objectIdentifierMatch"
			a.Syntax = SyntaxOID
		}),
		at("2.5.4.1", "aliasedObjectName", func(a *AttributeType) {
			dnValued(a)
			a.SingleValue = true
		}),
		at("2.5.4.41", "name", caseIgnoreString),
		at("2.5.4.3", "cn", func(a *AttributeType) {
			caseIgnoreString(a)
			a.AddName("commonName")
			a.Superior = "name"
		}),
		at("2.5.4.4", "sn", func(a *AttributeType) {
			caseIgnoreString(a)
			a.AddName("surname")
			a.Superior = "name"
		}),
		at("2.5.4.7", "l", func(a *AttributeType) {
			caseIgnoreString(a)
			a.AddName("localityName")
			a.Superior = "name"
		}),
		at("2.5.4.10", "o", func(a *AttributeType) {
			caseIgnoreString(a)
			a.AddName("organizationName")
			a.Superior = "name"
		}),
		at("2.5.4.11", "ou", func(a *AttributeType) {
			caseIgnoreString(a)
			a.AddName("organizationalUnitName")
			a.Superior = "name"
		}),
		at("2.5.4.12", "title", caseIgnoreString),
		at("2.5.4.13", "description", caseIgnoreString),
		at("2.5.4.20", "telephoneNumber", func(a *AttributeType) {
			a.Equality = "caseIgnoreMatch"
			a.Syntax = SyntaxTelephoneNumber
		}),
		at("2.5.4.31", "member", dnValued),
		at("2.5.4.32", "owner", dnValued),
		at("2.5.4.34", "seeAlso", dnValued),
		at("2.5.4.35", "userPassword", func(a *AttributeType) {
			a.Equality = "octetStringMatch"
			a.Syntax = SyntaxOctetString
		}),
		at("2.5.4.42", "givenName", func(a *AttributeType) {
			caseIgnoreString(a)
			a.Superior = "name"
		}),
		at("2.5.4.50", "uniqueMember", dnValued),
		at("0.9.2342.19200300.100.1.1", "uid", caseIgnoreString),
		at("0.9.2342.19200300.100.1.3", "mail", func(a *AttributeType) {
			a.Equality = "caseIgnoreIA5Match"
			a.Syntax = SyntaxIA5String
		}),
		at("0.9.2342.19200300.100.1.25", "dc", func(a *AttributeType) {
			a.Equality = "caseIgnoreIA5Match"
			a.AddName("domainComponent")
			a.Syntax = SyntaxIA5String
			a.SingleValue = true
		}),
		at("2.16.840.1.113730.3.1.34", "ref", func(a *AttributeType) {
			a.Equality = "caseExactMatch"
			a.Syntax = SyntaxDirectoryString
		}),
		at("1.3.6.1.1.1.1.0", "uidNumber", func(a *AttributeType) {
			a.Equality = "integerMatch"
			a.Ordering = "integerOrderingMatch"
			a.Syntax = SyntaxInteger
			a.SingleValue = true
		}),
		at("1.3.6.1.1.1.1.1", "gidNumber", func(a *AttributeType) {
			a.Equality = "integerMatch"
			a.Ordering = "integerOrderingMatch"
			a.Syntax = SyntaxInteger
			a.SingleValue = true
		}),
		at("2.16.840.1.113730.3.1.241", "displayName", func(a *AttributeType) {
			caseIgnoreString(a)
			a.SingleValue = true
		}),

		// Operational attributes.
		at("2.5.18.1", "createTimestamp", func(a *AttributeType) {
			operational(a)
			a.Equality = "generalizedTimeMatch"
			a.Ordering = "generalizedTimeOrderingMatch"
			a.Syntax = SyntaxGeneralizedTime
		}),
		at("2.5.18.2", "modifyTimestamp", func(a *AttributeType) {
			operational(a)
			a.Equality = "generalizedTimeMatch"
			a.Ordering = "generalizedTimeOrderingMatch"
			a.Syntax = SyntaxGeneralizedTime
		}),
		at("2.5.18.3", "creatorsName", func(a *AttributeType) {
			operational(a)
			dnValued(a)
		}),
		at("2.5.18.4", "modifiersName", func(a *AttributeType) {
			operational(a)
			dnValued(a)
		}),
		at("2.5.18.5", "administrativeRole", func(a *AttributeType) {
			a.Usage = DirectoryOperation
			a.Equality = "objectIdentifierMatch"
			a.Syntax = SyntaxOID
		}),
		at("2.5.18.6", "subtreeSpecification", func(a *AttributeType) {
			a.Usage = DirectoryOperation
			a.SingleValue = true
			a.Equality = "caseIgnoreMatch"
			a.Syntax = SyntaxSubtreeSpecification
		}),
		at("2.5.18.7", "collectiveExclusions", func(a *AttributeType) {
			a.Usage = DirectoryOperation
			a.Equality = "objectIdentifierMatch"
			a.Syntax = SyntaxOID
		}),
		at("2.5.18.9", "hasSubordinates", func(a *AttributeType) {
			operational(a)
			a.Equality = "booleanMatch"
			a.Syntax = SyntaxBoolean
		}),
		at("1.3.6.1.4.1.453.16.2.103", "numSubordinates", func(a *AttributeType) {
			operational(a)
			a.Equality = "integerMatch"
			a.Ordering = "integerOrderingMatch"
			a.Syntax = SyntaxInteger
		}),
		at("2.5.18.10", "subschemaSubentry", func(a *AttributeType) {
			operational(a)
			dnValued(a)
		}),
		at("1.3.6.1.1.16.4", "entryUUID", func(a *AttributeType) {
			operational(a)
			a.Equality = "octetStringMatch"
			a.Syntax = SyntaxUUID
		}),
		at("1.3.6.1.1.20", "entryDN", func(a *AttributeType) {
			operational(a)
			dnValued(a)
		}),
		at("1.3.6.1.4.1.1466.101.120.5", "namingContexts", func(a *AttributeType) {
			a.Usage = DSAOperation
			a.NoUserMod = true
			dnValued(a)
		}),
		at("1.3.6.1.4.1.1466.101.120.13", "supportedControl", func(a *AttributeType) {
			a.Usage = DSAOperation
			a.NoUserMod = true
			a.Equality = "objectIdentifierMatch"
			a.Syntax = SyntaxOID
		}),
		at("1.3.6.1.4.1.1466.101.120.15", "supportedLDAPVersion", func(a *AttributeType) {
			a.Usage = DSAOperation
			a.NoUserMod = true
			a.Equality = "integerMatch"
			a.Syntax = SyntaxInteger
		}),
		at("1.3.6.1.1.4", "vendorName", func(a *AttributeType) {
			a.Usage = DSAOperation
			a.NoUserMod = true
			a.SingleValue = true
			a.Equality = "caseExactMatch"
			a.Syntax = SyntaxDirectoryString
		}),
		at("1.3.6.1.1.5", "vendorVersion", func(a *AttributeType) {
			a.Usage = DSAOperation
			a.NoUserMod = true
			a.SingleValue = true
			a.Equality = "caseExactMatch"
			a.Syntax = SyntaxDirectoryString
		}),

		// Collective attributes (RFC 3671).
		at("2.5.4.10.1", "c-o", func(a *AttributeType) {
			caseIgnoreString(a)
			a.Superior = "o"
			a.Collective = true
		}),
		at("2.5.4.11.1", "c-ou", func(a *AttributeType) {
			caseIgnoreString(a)
			a.Superior = "ou"
			a.Collective = true
		}),
		at("2.5.4.7.1", "c-l", func(a *AttributeType) {
			caseIgnoreString(a)
			a.Superior = "l"
			a.Collective = true
		}),
		at("2.5.4.20.1", "c-telephoneNumber", func(a *AttributeType) {
			a.Equality = "caseIgnoreMatch"
			a.Syntax = SyntaxTelephoneNumber
			a.Superior = "telephoneNumber"
			a.Collective = true
		}),
	}
}

func oc(oid, name string, build func(*ObjectClass)) *ObjectClass {
	c := NewObjectClass(oid, name)
	if build != nil {
		build(c)
	}
	return c
}

func defaultObjectClasses() []*ObjectClass {
	return []*ObjectClass{
		oc("2.5.6.0", "top", func(c *ObjectClass) {
			c.Kind = ObjectClassAbstract
			c.Must = []string{"objectClass"}
		}),
		oc("2.5.6.1", "alias", func(c *ObjectClass) {
			c.Superior = "top"
			c.Must = []string{"aliasedObjectName"}
		}),
		oc("2.5.6.4", "organization", func(c *ObjectClass) {
			c.Superior = "top"
			c.Must = []string{"o"}
			c.May = []string{"description", "l", "telephoneNumber", "seeAlso"}
		}),
		oc("2.5.6.5", "organizationalUnit", func(c *ObjectClass) {
			c.Superior = "top"
			c.Must = []string{"ou"}
			c.May = []string{"description", "l", "telephoneNumber", "seeAlso"}
		}),
		oc("2.5.6.6", "person", func(c *ObjectClass) {
			c.Superior = "top"
			c.Must = []string{"cn", "sn"}
			c.May = []string{"userPassword", "telephoneNumber", "seeAlso", "description"}
		}),
		oc("2.5.6.7", "organizationalPerson", func(c *ObjectClass) {
			c.Superior = "person"
			c.May = []string{"title", "ou", "l"}
		}),
		oc("2.16.840.1.113730.3.2.2", "inetOrgPerson", func(c *ObjectClass) {
			c.Superior = "organizationalPerson"
			c.May = []string{"uid", "mail", "givenName", "displayName", "uidNumber", "gidNumber"}
		}),
		oc("2.5.6.9", "groupOfNames", func(c *ObjectClass) {
			c.Superior = "top"
			c.Must = []string{"cn", "member"}
			c.May = []string{"description", "owner", "seeAlso"}
		}),
		oc("2.5.6.17", "groupOfUniqueNames", func(c *ObjectClass) {
			c.Superior = "top"
			c.Must = []string{"cn", "uniqueMember"}
			c.May = []string{"description", "owner", "seeAlso"}
		}),
		oc("0.9.2342.19200300.100.4.13", "domain", func(c *ObjectClass) {
			c.Superior = "top"
			c.Must = []string{"dc"}
			c.May = []string{"description"}
		}),
		oc("2.5.17.0", "subentry", func(c *ObjectClass) {
			c.Superior = "top"
			c.Must = []string{"cn", "subtreeSpecification"}
		}),
		oc("2.5.17.1", "accessControlSubentry", func(c *ObjectClass) {
			c.Kind = ObjectClassAuxiliary
		}),
		oc("2.5.17.2", "collectiveAttributeSubentry", func(c *ObjectClass) {
			c.Kind = ObjectClassAuxiliary
			c.May = []string{"c-o", "c-ou", "c-l", "c-telephoneNumber"}
		}),
		oc("1.3.6.1.4.1.1466.101.120.111", "extensibleObject", func(c *ObjectClass) {
			c.Kind = ObjectClassAuxiliary
		}),
		oc("2.16.840.1.113730.3.2.6", "referral", func(c *ObjectClass) {
			c.Superior = "top"
			c.Must = []string{"ref"}
		}),
	}
}
