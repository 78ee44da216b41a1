package discovery

// GraphQL documents for the discovery (metadata) API.
const (
	getModelsQuery = `
query GetModels(
  $environmentId: BigInt!,
  $modelsFilter: ModelAppliedFilter,
  $after: String,
  $first: Int,
  $sort: AppliedModelSort
) {
  environment(id: $environmentId) {
    applied {
      models(filter: $modelsFilter, after: $after, first: $first, sort: $sort) {
        pageInfo {
          endCursor
        }
        edges {
          node {
            name
            uniqueId
            description
          }
        }
      }
    }
  }
}`

	getModelDetailsQuery = `
query GetModelDetails(
  $environmentId: BigInt!,
  $modelsFilter: ModelAppliedFilter,
  $first: Int
) {
  environment(id: $environmentId) {
    applied {
      models(filter: $modelsFilter, first: $first) {
        edges {
          node {
            name
            uniqueId
            compiledCode
            description
            database
            schema
            catalog {
              columns {
                description
                name
                type
              }
            }
          }
        }
      }
    }
  }
}`

	getModelParentsQuery = `
query GetModelParents(
  $environmentId: BigInt!,
  $modelsFilter: ModelAppliedFilter,
  $first: Int
) {
  environment(id: $environmentId) {
    applied {
      models(filter: $modelsFilter, first: $first) {
        edges {
          node {
            parents {
              name
              resourceType
              description
            }
          }
        }
      }
    }
  }
}`

	getModelChildrenQuery = `
query GetModelChildren(
  $environmentId: BigInt!,
  $modelsFilter: ModelAppliedFilter,
  $first: Int
) {
  environment(id: $environmentId) {
    applied {
      models(filter: $modelsFilter, first: $first) {
        edges {
          node {
            children {
              name
              resourceType
              description
            }
          }
        }
      }
    }
  }
}`
)
