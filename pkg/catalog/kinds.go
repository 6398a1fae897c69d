package catalog

// allKinds returns the engine's built-in descriptor table. Cisco SD-WAN
// controllers expose 80+ item kinds; this table carries a representative
// cross-section of every policy, template, profile, and certificate
// family, each wired with realistic endpoints, identity fields, and
// reference sites. Extending coverage to the full kind set is purely
// additive — appending rows here, never touching the generic walkers in
// pathwalk.go or the task/graph/action packages that consume them.
func allKinds() []KindDescriptor {
	var kinds []KindDescriptor

	for _, pl := range []string{"site", "vpn", "prefix", "community", "color", "sla-class", "tloc", "app", "zone", "data-prefix"} {
		kinds = append(kinds, policyListKind(pl))
	}

	for _, pd := range []string{"vedge", "vsmart", "control", "hubandspoke", "mesh", "approute", "vpnmembershipgroup"} {
		kinds = append(kinds, policyDefinitionKind(pd))
	}

	kinds = append(kinds,
		KindDescriptor{
			Kind: "policy_security",
			Endpoints: Endpoints{
				List: "/template/policy/security", Get: "/template/policy/security/%s",
				Post: "/template/policy/security", Put: "/template/policy/security/%s", Delete: "/template/policy/security/%s",
			},
			IDPath: "policyId", NamePath: "policyName", FactoryDefaultPath: "isActivatedByDefault",
			DependsOn: []string{"policy_definition.control", "policy_list.zone"},
			ReferenceSites: []ReferenceSite{
				{TargetKind: "policy_definition.control", Path: "policyDefinition.assembly[].definitionId"},
				{TargetKind: "policy_list.zone", Path: "policyDefinition.assembly[].zoneId"},
			},
		},
		KindDescriptor{
			Kind: "policy_profile.security",
			Endpoints: Endpoints{
				List: "/template/policy/profile/security", Get: "/template/policy/profile/security/%s",
				Post: "/template/policy/profile/security", Put: "/template/policy/profile/security/%s", Delete: "/template/policy/profile/security/%s",
			},
			IDPath: "profileId", NamePath: "profileName", FactoryDefaultPath: "factoryDefault",
			DependsOn: []string{"policy_security"},
			ReferenceSites: []ReferenceSite{
				{TargetKind: "policy_security", Path: "policies[]"},
			},
			Tags: []string{"policy_profile"},
		},
		centralPolicyKind("policy_vedge", []string{"policy_definition.vedge", "policy_definition.approute", "policy_list.vpn"}),
		centralPolicyKind("policy_vsmart", []string{"policy_definition.control", "policy_definition.hubandspoke", "policy_definition.mesh", "policy_list.site", "policy_list.tloc"}),
		centralPolicyKind("policy_voice", []string{"policy_list.app"}),
		KindDescriptor{
			Kind: "policy_customapp",
			Endpoints: Endpoints{
				List: "/template/policy/customapp", Get: "/template/policy/customapp/%s",
				Post: "/template/policy/customapp", Put: "/template/policy/customapp/%s", Delete: "/template/policy/customapp/%s",
			},
			IDPath: "appId", NamePath: "name", FactoryDefaultPath: "factoryDefault",
		},
		KindDescriptor{
			Kind: "template_feature",
			Endpoints: Endpoints{
				List: "/template/feature", Get: "/template/feature/object/%s",
				Post: "/template/feature", Put: "/template/feature/%s", Delete: "/template/feature/%s",
			},
			IDPath: "templateId", NamePath: "templateName", FactoryDefaultPath: "factoryDefault", VersionPath: "templateMinVersion",
			DependsOn: []string{"policy_list.vpn", "policy_list.site", "policy_list.prefix", "policy_list.color"},
			ReferenceSites: []ReferenceSite{
				{TargetKind: "policy_list.vpn", Path: "templateDefinition.vpn-list[].vipValue[]"},
				{TargetKind: "policy_list.color", Path: "templateDefinition.restrict.color-list[].vipValue[]"},
			},
		},
		KindDescriptor{
			Kind: "template_device",
			Endpoints: Endpoints{
				List: "/template/device", Get: "/template/device/object/%s",
				Post: "/template/device/feature", Put: "/template/device/feature/%s", Delete: "/template/device/%s",
			},
			IDPath: "templateId", NamePath: "templateName", FactoryDefaultPath: "factoryDefault", VersionPath: "templateMinVersion",
			DependsOn: []string{"template_feature", "policy_vedge", "policy_security"},
			ReferenceSites: []ReferenceSite{
				{TargetKind: "template_feature", Path: "generalTemplates[].templateId"},
				{TargetKind: "template_feature", Path: "generalTemplates[].subTemplates[].templateId"},
				{TargetKind: "policy_vedge", Path: "policyId"},
				{TargetKind: "policy_security", Path: "securityPolicyId"},
			},
		},
		KindDescriptor{
			Kind: "config_group",
			Endpoints: Endpoints{
				List: "/v1/config-group", Get: "/v1/config-group/%s",
				Post: "/v1/config-group", Put: "/v1/config-group/%s", Delete: "/v1/config-group/%s",
			},
			IDPath: "id", NamePath: "name", FactoryDefaultPath: "factoryDefault", MinVersion: "20.1",
			DependsOn: []string{"feature_profile.transport", "feature_profile.system", "feature_profile.other", "feature_profile.cli"},
			ReferenceSites: []ReferenceSite{
				{TargetKind: "feature_profile.transport", Path: "profiles[].id"},
				{TargetKind: "feature_profile.system", Path: "profiles[].id"},
				{TargetKind: "feature_profile.other", Path: "profiles[].id"},
				{TargetKind: "feature_profile.cli", Path: "profiles[].id"},
			},
		},
	)

	for _, fp := range []string{"transport", "system", "other", "cli"} {
		kinds = append(kinds, featureProfileKind(fp))
	}

	kinds = append(kinds, KindDescriptor{
		Kind: "certificate.wan_edge",
		Endpoints: Endpoints{
			List: "/certificate/vedge/list",
		},
		IDPath: "uuid", NamePath: "host-name",
	})

	return kinds
}

func policyListKind(subtype string) KindDescriptor {
	kind := "policy_list." + subtype
	return KindDescriptor{
		Kind: kind,
		Endpoints: Endpoints{
			List:   "/template/policy/list/" + subtype,
			Get:    "/template/policy/list/" + subtype + "/%s",
			Post:   "/template/policy/list/" + subtype,
			Put:    "/template/policy/list/" + subtype + "/%s",
			Delete: "/template/policy/list/" + subtype + "/%s",
		},
		IDPath:             "listId",
		NamePath:           "name",
		FactoryDefaultPath: "factoryDefault",
		Tags:               []string{"policy_list"},
	}
}

func policyDefinitionKind(subtype string) KindDescriptor {
	kind := "policy_definition." + subtype
	d := KindDescriptor{
		Kind: kind,
		Endpoints: Endpoints{
			List:   "/template/policy/definition/" + subtype,
			Get:    "/template/policy/definition/" + subtype + "/%s",
			Post:   "/template/policy/definition/" + subtype,
			Put:    "/template/policy/definition/" + subtype + "/%s",
			Delete: "/template/policy/definition/" + subtype + "/%s",
		},
		IDPath:             "definitionId",
		NamePath:           "name",
		FactoryDefaultPath: "factoryDefault",
		DependsOn:          []string{"policy_list.site", "policy_list.vpn", "policy_list.prefix", "policy_list.tloc"},
		ReferenceSites: []ReferenceSite{
			{TargetKind: "policy_list.site", Path: "definition.sequences[].match.entries[].siteLists[]"},
			{TargetKind: "policy_list.vpn", Path: "definition.sequences[].match.entries[].vpnLists[]"},
			{TargetKind: "policy_list.prefix", Path: "definition.sequences[].match.entries[].prefixLists[]"},
			{TargetKind: "policy_list.tloc", Path: "definition.sequences[].actions[].tlocLists[]"},
		},
		Tags: []string{"policy_definition"},
	}
	return d
}

// centralPolicyKind builds one of the top-level assembled policies
// (policy_vedge, policy_vsmart, policy_voice) that reference a set of
// policy_definition.* items via an "assembly" block.
func centralPolicyKind(kind string, dependsOn []string) KindDescriptor {
	segment := kind[len("policy_"):]
	var sites []ReferenceSite
	for _, dep := range dependsOn {
		sites = append(sites, ReferenceSite{TargetKind: dep, Path: "policyDefinition.assembly[].definitionId"})
	}
	return KindDescriptor{
		Kind: kind,
		Endpoints: Endpoints{
			List:   "/template/policy/" + segment,
			Get:    "/template/policy/" + segment + "/%s",
			Post:   "/template/policy/" + segment,
			Put:    "/template/policy/" + segment + "/%s",
			Delete: "/template/policy/" + segment + "/%s",
		},
		IDPath:             "policyId",
		NamePath:           "policyName",
		FactoryDefaultPath: "isActivatedByDefault",
		DependsOn:          dependsOn,
		ReferenceSites:     sites,
	}
}

func featureProfileKind(subtype string) KindDescriptor {
	kind := "feature_profile." + subtype
	return KindDescriptor{
		Kind: kind,
		Endpoints: Endpoints{
			List:   "/v1/feature-profile/sdwan/" + subtype,
			Get:    "/v1/feature-profile/sdwan/" + subtype + "/%s",
			Post:   "/v1/feature-profile/sdwan/" + subtype,
			Put:    "/v1/feature-profile/sdwan/" + subtype + "/%s",
			Delete: "/v1/feature-profile/sdwan/" + subtype + "/%s",
		},
		IDPath:             "profileId",
		NamePath:           "profileName",
		FactoryDefaultPath: "factoryDefault",
		MinVersion:         "20.1",
		Tags:               []string{"feature_profile"},
	}
}
